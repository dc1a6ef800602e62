package llm

import (
	"fmt"
	"net/url"
	"strings"
)

const scholarSearchURL = "https://scholar.google.com/scholar?q="

// ScholarLinks turns every line listed under the last "Sources" heading of an
// answer into a Google Scholar search link. The remainder of the heading line is skipped.
func ScholarLinks(answer string) []string {
	i := strings.LastIndex(answer, "Sources")
	if i < 0 {
		return nil
	}

	section := answer[i+len("Sources"):]
	newline := strings.Index(section, "\n")
	if newline < 0 {
		return nil
	}

	var links []string
	for _, line := range strings.Split(section[newline+1:], "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		links = append(links, scholarSearchURL+url.QueryEscape(line))
	}
	return links
}

// AppendLinks appends the links numbered from 1
func AppendLinks(answer string, links []string) string {
	var b strings.Builder
	b.WriteString(answer)
	for i, link := range links {
		fmt.Fprintf(&b, "\n\n [%d] %s", i+1, link)
	}
	return b.String()
}
