// Package redact strips credentials, addresses, file locations and query text
// from strings before they are logged. Error responses never carry raw error
// text; log lines carry it only after passing through Error or String.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

// rule replaces every match of pattern with placeholder.
type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules run in order. Credential-bearing URLs and keys go first so later,
// broader patterns never split them into partially visible pieces.
var rules = []rule{
	// Go panics and stack dumps
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(?:\n\t.*)+`), RedactedStackPlaceholder},

	// userinfo in connection strings: postgres://user:pass@
	{regexp.MustCompile(`(?i)\b(?:postgres(?:ql)?|mysql|redis|amqp)://[^@\s]+@`), RedactedCredentialPlaceholder},

	// SendGrid API keys
	{regexp.MustCompile(`SG\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`), RedactedKeyPlaceholder},

	// AWS access key ids and presigned URL parameters
	{regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`(?i)X-Amz-(?:Signature|Credential|Security-Token)=[^&\s]+`), RedactedKeyPlaceholder},

	// key=value style secrets
	{regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]+`), RedactedCredentialPlaceholder},
	{
		regexp.MustCompile(
			`(?i)\b(?:api[_-]?key|secret(?:_access_key)?|token|authorization)\s*[=:]\s*['"]?(?:Bearer\s+)?[A-Za-z0-9_\-.~+/=]{8,}`,
		),
		RedactedKeyPlaceholder,
	},

	// reminder recipients
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},

	// storage locations and other file paths
	{regexp.MustCompile(`(?:/[\w.-]+){2,}/?`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(?:\\[^\\\s]+)+`), RedactedPathPlaceholder},

	// statement text echoed by the driver; keywords are matched upper case only
	// so prose such as "failed to update task" survives
	{regexp.MustCompile(`\b(?:SELECT|INSERT INTO|UPDATE|DELETE FROM|WITH)\s[^;\n]*`), RedactedSQLPlaceholder},

	// network endpoints
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d{1,5})?\b`), RedactedHostPlaceholder},
	{regexp.MustCompile(`\b(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,}:\d{1,5}\b`), RedactedHostPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
