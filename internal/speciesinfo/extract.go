package speciesinfo

import (
	"regexp"
	"strings"

	"github.com/k3a/html2text"
)

const (
	maxDescriptionLen = 300
	maxRegionLen      = 150

	regionWidespread = "Widespread"
	regionUnknown    = "Unknown"
)

// regionPatterns are tried in order; the first match wins.
var regionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)found in ([^.]+)`),
	regexp.MustCompile(`(?i)native to ([^.]+)`),
	regexp.MustCompile(`(?i)distributed (?:across|in|throughout) ([^.]+)`),
	regexp.MustCompile(`(?i)occurs (?:in|across|throughout) ([^.]+)`),
	regexp.MustCompile(`(?i)breeds (?:in|across) ([^.]+)`),
}

// ExtractRegion derives a distribution phrase from an article extract.
// An empty extract yields "Unknown", no match yields "Widespread".
func ExtractRegion(extract string) string {
	if extract == "" {
		return regionUnknown
	}
	for _, re := range regionPatterns {
		if m := re.FindStringSubmatch(extract); m != nil {
			return truncate(strings.TrimSpace(m[1]), maxRegionLen)
		}
	}
	return regionWidespread
}

// Describe trims an extract into a short description.
func Describe(extract string) string {
	return truncate(strings.TrimSpace(extract), maxDescriptionLen)
}

// truncate shortens s to limit characters, replacing the tail with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// plainText strips markup and decodes entities when the extract is not
// already plain text.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html2text.HTML2Text(s)
}
