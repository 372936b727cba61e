package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys emitted verbatim by MaskField. Everything else passed through it is
// treated as a secret.
var plainKeys = map[string]struct{}{
	"service":    {},
	"env":        {},
	"component":  {},
	"module":     {},
	"call":       {},
	"height":     {},
	"swap_id":    {},
	"request_id": {},
	"error":      {},
	"reason":     {},
}

// IsAllowlisted reports whether key may be logged unmasked.
func IsAllowlisted(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField redacts value unless key is allowlisted or value is empty.
func MaskField(key, value string) slog.Attr {
	if IsAllowlisted(key) || strings.TrimSpace(value) == "" {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskAddress keeps the first and last four characters of an account, TRON
// address or DSN so log lines stay correlatable. Short values are redacted
// entirely.
func MaskAddress(key, value string) slog.Attr {
	v := strings.TrimSpace(value)
	if len(v) <= 12 {
		return MaskField(key, v)
	}
	return slog.String(key, v[:4]+"..."+v[len(v)-4:])
}
