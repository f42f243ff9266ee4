package domain

import (
	"fmt"
	"strings"
)

// Priority selects the redemption queue tier. Higher tiers drain first.
// The zero value is PriorityLow, not the default tier; use DefaultPriority
// when the caller has no preference.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// DefaultPriority is the tier used when none is requested.
const DefaultPriority = PriorityNormal

// Priorities lists every tier in drain order.
var Priorities = [...]Priority{PriorityHigh, PriorityNormal, PriorityLow}

// String returns the lowercase tier name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// Valid reports whether p names one of the three tiers.
func (p Priority) Valid() bool {
	return p <= PriorityHigh
}

// ParsePriority parses a tier name as produced by String. Matching is case-insensitive.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "":
		return DefaultPriority, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	}
	return 0, ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown priority %q", s))
}

// RedeemItem is a product key queued for redemption under a display name.
type RedeemItem struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Validate checks the key format and that the name is non-empty.
func (r RedeemItem) Validate() error {
	if r.Key == "" {
		return ErrInvalidRedeemItem.WithDetails("empty key")
	}
	if r.Name == "" {
		return ErrInvalidRedeemItem.WithDetails(fmt.Sprintf("empty name for key %s", MaskCDKey(r.Key)))
	}
	if !IsValidCDKey(r.Key) {
		return ErrInvalidRedeemItem.WithDetails(fmt.Sprintf("malformed key %s", MaskCDKey(r.Key)))
	}
	return nil
}

const (
	cdKeyGroupLen   = 5
	cdKeyShortParts = 3
	cdKeyLongParts  = 5
)

// IsValidCDKey reports whether key is a product key of three or five dash-separated
// groups of five characters in [0-9A-Z]. Lowercase input is accepted.
func IsValidCDKey(key string) bool {
	parts := strings.Split(strings.ToUpper(key), "-")
	if len(parts) != cdKeyShortParts && len(parts) != cdKeyLongParts {
		return false
	}
	for _, part := range parts {
		if len(part) != cdKeyGroupLen {
			return false
		}
		for i := 0; i < len(part); i++ {
			c := part[i]
			if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
				return false
			}
		}
	}
	return true
}

// NormalizeCDKey returns the case-folded form used for key comparison.
func NormalizeCDKey(key string) string {
	return strings.ToUpper(key)
}

// MaskCDKey keeps the first group of a product key and masks the rest,
// e.g. "ABCDE-*****-*****". Values without a dash are masked entirely.
func MaskCDKey(key string) string {
	head, rest, found := strings.Cut(key, "-")
	if !found {
		return strings.Repeat("*", len(key))
	}
	var b strings.Builder
	b.WriteString(head)
	for _, group := range strings.Split(rest, "-") {
		b.WriteByte('-')
		b.WriteString(strings.Repeat("*", len(group)))
	}
	return b.String()
}
