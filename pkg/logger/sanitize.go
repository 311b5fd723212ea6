package logger

import (
	"strings"
)

// SanitizedIdentifier masks a login identifier for logging. Email
// addresses keep the first character and the TLD; plain usernames keep
// the first character only.
func SanitizedIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}

	at := strings.IndexByte(identifier, '@')
	if at <= 0 {
		return string(identifier[0]) + strings.Repeat("*", len(identifier)-1)
	}

	local := identifier[:at]
	domain := identifier[at+1:]

	masked := string(local[0]) + strings.Repeat("*", len(local)-1)

	parts := strings.Split(domain, ".")
	for i := 0; i < len(parts)-1; i++ {
		parts[i] = strings.Repeat("*", len(parts[i]))
	}

	return masked + "@" + strings.Join(parts, ".")
}

// SensitiveQuery reports whether a raw query string names a sensitive
// parameter and should be redacted from request logs.
func SensitiveQuery(rawQuery string) bool {
	sensitive := []string{"password", "token", "secret", "session", "auth"}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitive {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
