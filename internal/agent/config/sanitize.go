package config

import "strings"

// Sanitize returns a copy of the config with secrets masked for logging.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	sanitized.Accounts = append([]string(nil), cfg.Accounts...)
	if sanitized.Storage.Passphrase != "" {
		sanitized.Storage.Passphrase = maskSecret(sanitized.Storage.Passphrase)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
