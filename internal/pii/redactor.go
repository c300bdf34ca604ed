package pii

import "regexp"

// Ordered substitutions. Phone patterns run before the bare 12-digit rule so
// an unhyphenated mobile number is not half-consumed as a national ID.
var replacements = []struct {
	pattern *regexp.Regexp
	token   string
}{
	// email addresses
	{regexp.MustCompile(`[\w.+%-]+@[\w.-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	// domestic phone numbers with hyphens
	{regexp.MustCompile(`0\d{1,4}-\d{2,4}-\d{4}`), "[PHONE]"},
	// mobile numbers without hyphens
	{regexp.MustCompile(`0[789]0\d{8}`), "[PHONE]"},
	// postal codes
	{regexp.MustCompile(`〒?\d{3}-\d{4}`), "[POSTAL]"},
	// 12-digit national ID shaped numbers
	{regexp.MustCompile(`\b\d{12}\b`), "[MYNUMBER]"},
}

// Redact masks identifying substrings before text crosses the trust boundary
// toward the generative engine. It is call-scoped: stored inquiry text is
// never altered.
func Redact(text string) string {
	for _, r := range replacements {
		text = r.pattern.ReplaceAllString(text, r.token)
	}
	return text
}
