package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/botvault/internal/core/domain"
)

// Attribute keys whose values are always redacted.
var sensitiveKeyPatterns = []string{
	"token",
	"secret",
	"guard",
	"parental",
	"passphrase",
	"password",
}

// Attribute keys whose values are product keys and are masked, not dropped.
var cdKeyPatterns = []string{
	"cdkey",
	"cd_key",
	"redeem_key",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks product keys and redacts secrets.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	strVal := a.Value.String()
	if strVal == "" {
		return a
	}

	// Product keys are recognised by shape so they are masked under any key.
	if IsCDKeyAttr(a.Key) || domain.IsValidCDKey(strVal) {
		return slog.String(a.Key, domain.MaskCDKey(strVal))
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// RedactString masks s if it looks like a product key.
func RedactString(s string) string {
	if domain.IsValidCDKey(s) {
		return domain.MaskCDKey(s)
	}
	return s
}

// IsSensitiveKey checks if a key name suggests a secret.
func IsSensitiveKey(key string) bool {
	return containsAny(strings.ToLower(key), sensitiveKeyPatterns)
}

// IsCDKeyAttr checks if a key name suggests a product key.
func IsCDKeyAttr(key string) bool {
	return containsAny(strings.ToLower(key), cdKeyPatterns)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
