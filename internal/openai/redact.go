package openai

import (
	"regexp"
	"strings"
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._\-=/+]+`),
	regexp.MustCompile(`(?i)\b(sk-[A-Za-z0-9*\-_]{8,})`),
	regexp.MustCompile(`(?i)\b([A-Za-z0-9_]*(TOKEN|SECRET|PASSWORD|API_KEY))\b\s*[:=]\s*["']?([^\s"']+)`),
}

// redactSecrets masks credentials that upstream error bodies sometimes echo
// back, such as a partially printed API key.
func redactSecrets(text string) string {
	out := text
	for _, p := range secretPatterns {
		out = p.ReplaceAllStringFunc(out, func(m string) string {
			if k, _, ok := strings.Cut(m, "="); ok {
				return k + "=***REDACTED***"
			}
			if k, _, ok := strings.Cut(m, ":"); ok {
				return k + ": ***REDACTED***"
			}
			return "***REDACTED***"
		})
	}
	return out
}

// bodySnippet prepares a response body for an error message.
func bodySnippet(body []byte) string {
	return truncate(redactSecrets(string(body)), 400)
}
