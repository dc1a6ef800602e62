package evaluation

import (
	"regexp"
	"strings"
)

var (
	yearCitation = regexp.MustCompile(`\([^)]*\d{4}[^)]*\)`)
	linkMarker   = regexp.MustCompile(`\[\d+\]`)
	whitespace   = regexp.MustCompile(`\s+`)

	// Everything from these headings on is not part of the answer body
	trailingSections = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\n\s*Sources?\s*:?.*`),
		regexp.MustCompile(`(?is)\n\s*References?\s*:?.*`),
		regexp.MustCompile(`(?is)\n\s*Disclaimer\s*:?.*`),
	}
)

// CleanAnswer strips citations, numbered markers and source, reference and
// disclaimer sections from an answer and collapses whitespace.
func CleanAnswer(answer string) string {
	answer = yearCitation.ReplaceAllString(answer, "")
	answer = linkMarker.ReplaceAllString(answer, "")

	for _, section := range trailingSections {
		if loc := section.FindStringIndex(answer); loc != nil {
			answer = answer[:loc[0]]
		}
	}

	return strings.TrimSpace(whitespace.ReplaceAllString(answer, " "))
}
