package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength caps how much of a SQL statement is logged.
	MaxQueryLogLength = 200
	// RedactedText replaces sensitive data in log output.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx until the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// api keys in key=value form
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host inside connection URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a connection string
// before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError sanitizes an error message that may embed credentials, such
// as driver errors that echo the connection string.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeQuery truncates a SQL statement for logging.
func SanitizeQuery(query string) string {
	if len(query) > MaxQueryLogLength {
		return query[:MaxQueryLogLength] + "..."
	}
	return query
}
