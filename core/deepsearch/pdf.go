package deepsearch

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/medrag/helper"
)

var (
	repeatedSpaces   = regexp.MustCompile(` {2,}`)
	repeatedNewlines = regexp.MustCompile(`\n{3,}`)
	pageBreaks       = regexp.MustCompile(`[\f\v\r]`)
	controlChars     = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	sentenceJoin     = regexp.MustCompile(`([.!?])\s*([A-Z])`)
)

// ExtractPDFText returns the plain text of all pages of a PDF document
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", helper.NewError("open pdf", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", helper.NewError("extract pdf text", err)
	}

	text, err := io.ReadAll(plain)
	if err != nil {
		return "", helper.NewError("read pdf text", err)
	}
	return string(text), nil
}

// CleanText normalizes extracted text: repeated spaces and blank lines are
// collapsed, control characters removed and sentence ends separated from the
// next capitalized word by one space.
func CleanText(text string) string {
	text = repeatedSpaces.ReplaceAllString(text, " ")
	text = repeatedNewlines.ReplaceAllString(text, "\n\n")
	text = pageBreaks.ReplaceAllString(text, " ")
	text = controlChars.ReplaceAllString(text, "")
	text = sentenceJoin.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}
