package logger

import (
	"log/slog"
	"strings"
)

// SanitizedLogin masks a submitted login for log output. Logins may be
// usernames or email addresses; both keep only their first character.
func SanitizedLogin(login string) string {
	if at := strings.Index(login, "@"); at > 0 {
		return SanitizedEmail(login)
	}
	if len(login) <= 1 {
		return "*"
	}
	return string(login[0]) + strings.Repeat("*", len(login)-1)
}

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizeQueryString reports whether a raw query string carries
// parameters that must not reach the request log.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	lower := strings.ToLower(rawQuery)
	for _, param := range []string{"password", "token", "secret", "key", "session"} {
		if strings.Contains(lower, param) {
			return true
		}
	}
	return false
}

// RedactedAttr returns a redacted slog attribute for sensitive values.
// In production it always logs "[REDACTED]".
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}
