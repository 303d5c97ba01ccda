package common

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanText unescapes HTML entities, drops tags and collapses whitespace in
// provider free text such as plots and overviews.
func CleanText(raw string) string {
	value := strings.TrimSpace(raw)
	value = html.UnescapeString(value)
	value = tagPattern.ReplaceAllString(value, " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

// OptionalText maps the placeholder values providers use for missing data
// ("N/A", "null", "-") to an empty string.
func OptionalText(raw string) string {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "", "n/a", "na", "null", "none", "-":
		return ""
	}
	return value
}
