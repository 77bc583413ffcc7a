package listing

import (
	"regexp"
	"strings"
)

// locationPattern is intentionally loose: it captures every letter/space run
// after "in", including unrelated trailing words.
var locationPattern = regexp.MustCompile(`(?i)in\s+([A-Za-z\s]+)`)

// ExtractLocation returns the place named after "in" in text.
func ExtractLocation(text string) (string, bool) {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	location := strings.TrimSpace(m[1])
	if location == "" {
		return "", false
	}
	return location, true
}
