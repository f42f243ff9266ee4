package authenticator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/botvault/internal/core/domain"
)

var (
	testShared   = base64.StdEncoding.EncodeToString([]byte("0123456789abcdefghij"))
	testIdentity = base64.StdEncoding.EncodeToString([]byte("identity-secret"))
)

func TestAuthenticator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		auth    *Authenticator
		wantErr bool
	}{
		{"valid", New(testShared, testIdentity, ""), false},
		{"valid without identity", New(testShared, "", ""), false},
		{"not base64", New("!!!", "", ""), true},
		{"short secret", New(base64.StdEncoding.EncodeToString([]byte("short")), "", ""), true},
		{"bad identity", New(testShared, "%%%", ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.auth.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrAuthenticatorInvalid) {
				t.Errorf("Validate() error = %v, want ErrAuthenticatorInvalid", err)
			}
		})
	}
}

func TestAuthenticator_GenerateCode(t *testing.T) {
	a := New(testShared, testIdentity, "")
	at := time.Unix(1_700_000_000, 0)

	code, err := a.GenerateCode(at)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if len(code) != codeLength {
		t.Fatalf("len(code) = %d, want %d", len(code), codeLength)
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Fatalf("code %q contains %q outside the alphabet", code, c)
		}
	}

	// Stable within one step, changes across steps.
	same, _ := a.GenerateCode(at.Add(time.Second))
	stepStart := at.Truncate(codeStep)
	if at.Add(time.Second).Before(stepStart.Add(codeStep)) && same != code {
		t.Errorf("code changed within one step: %q != %q", same, code)
	}
	var differs bool
	for i := 1; i <= 4; i++ {
		next, _ := a.GenerateCode(at.Add(time.Duration(i) * codeStep))
		if next != code {
			differs = true
		}
	}
	if !differs {
		t.Error("code never changed across four steps")
	}
}

func TestAuthenticator_ConfirmationHash(t *testing.T) {
	a := New(testShared, testIdentity, "")
	at := time.Unix(1_700_000_000, 0)

	h1, err := a.ConfirmationHash(at, "conf")
	if err != nil {
		t.Fatalf("ConfirmationHash: %v", err)
	}
	h2, _ := a.ConfirmationHash(at, "allow")
	if h1 == h2 {
		t.Error("different tags produced the same hash")
	}
	if _, err := base64.StdEncoding.DecodeString(h1); err != nil {
		t.Errorf("hash is not base64: %v", err)
	}

	if _, err := New(testShared, "", "").ConfirmationHash(at, "conf"); !errors.Is(err, domain.ErrAuthenticatorInvalid) {
		t.Errorf("ConfirmationHash without identity error = %v, want ErrAuthenticatorInvalid", err)
	}
}

func TestAuthenticator_SetDeviceID(t *testing.T) {
	a := New(testShared, testIdentity, "android:1")

	var calls int
	a.Bind(func() { calls++ })

	a.SetDeviceID("android:1")
	if calls != 0 {
		t.Fatalf("calls = %d after setting same id, want 0", calls)
	}
	a.SetDeviceID("android:2")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if got := a.DeviceID(); got != "android:2" {
		t.Errorf("DeviceID() = %q, want android:2", got)
	}
}

func TestAuthenticator_Close(t *testing.T) {
	a := New(testShared, testIdentity, "")
	a.Bind(func() { t.Fatal("callback fired after Close") })

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	a.SetDeviceID("ignored")
	if _, err := a.GenerateCode(time.Now()); !errors.Is(err, domain.ErrAuthenticatorClosed) {
		t.Errorf("GenerateCode after Close error = %v, want ErrAuthenticatorClosed", err)
	}
}

func TestAuthenticator_JSON(t *testing.T) {
	a := New(testShared, testIdentity, "android:1")

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal map: %v", err)
	}
	if fields["shared_secret"] != testShared || fields["device_id"] != "android:1" {
		t.Errorf("fields = %v", fields)
	}

	var b Authenticator
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() after round trip: %v", err)
	}
	if b.DeviceID() != "android:1" {
		t.Errorf("DeviceID() = %q, want android:1", b.DeviceID())
	}
}
