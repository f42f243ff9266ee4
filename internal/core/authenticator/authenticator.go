// Package authenticator implements the mobile authenticator owned by an
// account database: guard code generation and confirmation hashes derived
// from the account's shared and identity secrets.
package authenticator

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/yndnr/botvault/internal/core/domain"
)

const (
	codeAlphabet = "23456789BCDFGHJKMNPQRTVWXY"
	codeLength   = 5
	codeStep     = 30 * time.Second

	// SharedSecretSize is the decoded length of a valid shared secret.
	SharedSecretSize = 20
)

// Authenticator holds the secrets of one account's mobile authenticator.
// It is safe for concurrent use.
type Authenticator struct {
	mu             sync.RWMutex
	sharedSecret   string
	identitySecret string
	deviceID       string

	onChange func()
	closed   bool
}

type wire struct {
	SharedSecret   string `json:"shared_secret"`
	IdentitySecret string `json:"identity_secret"`
	DeviceID       string `json:"device_id,omitempty"`
}

// New returns an authenticator for the given base64 secrets.
func New(sharedSecret, identitySecret, deviceID string) *Authenticator {
	return &Authenticator{
		sharedSecret:   sharedSecret,
		identitySecret: identitySecret,
		deviceID:       deviceID,
	}
}

// Validate checks that the shared secret decodes to SharedSecretSize bytes
// and that the identity secret, when set, is valid base64.
func (a *Authenticator) Validate() error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	shared, err := base64.StdEncoding.DecodeString(a.sharedSecret)
	if err != nil {
		return domain.ErrAuthenticatorInvalid.WithDetails("shared secret is not base64").WithCause(err)
	}
	if len(shared) != SharedSecretSize {
		return domain.ErrAuthenticatorInvalid.WithDetails(
			fmt.Sprintf("shared secret is %d bytes, want %d", len(shared), SharedSecretSize))
	}
	if a.identitySecret != "" {
		if _, err := base64.StdEncoding.DecodeString(a.identitySecret); err != nil {
			return domain.ErrAuthenticatorInvalid.WithDetails("identity secret is not base64").WithCause(err)
		}
	}
	return nil
}

// DeviceID returns the device identifier, "" when unset.
func (a *Authenticator) DeviceID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.deviceID
}

// SetDeviceID updates the device identifier and notifies the bound owner
// when the value changes.
func (a *Authenticator) SetDeviceID(id string) {
	a.mu.Lock()
	if a.deviceID == id || a.closed {
		a.mu.Unlock()
		return
	}
	a.deviceID = id
	fn := a.onChange
	a.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Bind registers the owner's change callback, replacing any previous one.
func (a *Authenticator) Bind(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Close detaches the owner and disables code generation. Close is idempotent.
func (a *Authenticator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.onChange = nil
	return nil
}

// GenerateCode returns the five character guard code valid at t.
func (a *Authenticator) GenerateCode(t time.Time) (string, error) {
	a.mu.RLock()
	secret, closed := a.sharedSecret, a.closed
	a.mu.RUnlock()

	if closed {
		return "", domain.ErrAuthenticatorClosed
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", domain.ErrAuthenticatorInvalid.WithCause(err)
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(t.Unix()/int64(codeStep/time.Second)))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	full := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[full%uint32(len(codeAlphabet))]
		full /= uint32(len(codeAlphabet))
	}
	return string(code), nil
}

// ConfirmationHash returns the base64 HMAC-SHA1 of t and tag keyed by the
// identity secret.
func (a *Authenticator) ConfirmationHash(t time.Time, tag string) (string, error) {
	a.mu.RLock()
	secret, closed := a.identitySecret, a.closed
	a.mu.RUnlock()

	if closed {
		return "", domain.ErrAuthenticatorClosed
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || len(key) == 0 {
		return "", domain.ErrAuthenticatorInvalid.WithDetails("identity secret unavailable")
	}

	buf := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	buf = append(buf, tag...)

	mac := hmac.New(sha1.New, key)
	mac.Write(buf)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// MarshalJSON implements json.Marshaler.
func (a *Authenticator) MarshalJSON() ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return json.Marshal(wire{
		SharedSecret:   a.sharedSecret,
		IdentitySecret: a.identitySecret,
		DeviceID:       a.deviceID,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Authenticator) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sharedSecret = w.SharedSecret
	a.identitySecret = w.IdentitySecret
	a.deviceID = w.DeviceID
	return nil
}
