package logger

import (
	"strings"

	"go.uber.org/zap"
)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" becomes "jo***@example.com".
// Short local parts (2 chars or fewer) are fully masked: "ab@example.com" becomes "***@example.com".
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// Email returns a zap field carrying a redacted email address.
// Account emails must never reach logs unmasked.
func Email(key, email string) zap.Field {
	return zap.String(key, RedactEmail(email))
}
