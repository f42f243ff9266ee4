package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form BV-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "BV-DB-5002")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two DomainErrors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Argument Errors (ARG, RDM)
// ============================================================================

var (
	// ErrInvalidArgument indicates a missing or empty argument (empty batch,
	// empty key, nil value).
	ErrInvalidArgument = NewDomainError("BV-ARG-4000", "invalid argument")

	// ErrInvalidRedeemItem indicates a key/name pair that fails validation.
	ErrInvalidRedeemItem = NewDomainError("BV-RDM-4001", "invalid redeem item")
)

// ============================================================================
// Database Errors (DB)
// ============================================================================

var (
	// ErrDatabaseEmpty indicates the database file exists but has no content.
	ErrDatabaseEmpty = NewDomainError("BV-DB-5001", "database file is empty")

	// ErrDatabaseCorrupt indicates the database file could not be parsed.
	ErrDatabaseCorrupt = NewDomainError("BV-DB-5002", "database file is corrupt")

	// ErrDatabaseInvalid indicates the parsed database failed validation.
	ErrDatabaseInvalid = NewDomainError("BV-DB-5003", "database failed validation")

	// ErrDatabaseClosed indicates an operation on a disposed database.
	ErrDatabaseClosed = NewDomainError("BV-DB-4090", "database closed")
)

// ============================================================================
// Authenticator Errors (AUTH)
// ============================================================================

var (
	// ErrAuthenticatorInvalid indicates malformed authenticator secrets.
	ErrAuthenticatorInvalid = NewDomainError("BV-AUTH-4000", "invalid mobile authenticator")

	// ErrAuthenticatorClosed indicates use of a disposed authenticator.
	ErrAuthenticatorClosed = NewDomainError("BV-AUTH-4090", "mobile authenticator closed")
)
