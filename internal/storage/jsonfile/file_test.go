package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/yndnr/botvault/pkg/crypto/seal"
)

func TestFile_ReadMissing(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "missing.db"))

	if _, err := f.Read(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read() error = %v, want os.ErrNotExist", err)
	}
	ok, err := f.Exists()
	if err != nil || ok {
		t.Fatalf("Exists() = %v, %v, want false, nil", ok, err)
	}
}

func TestFile_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bot.db")
	f := New(path)

	doc := []byte(`{"BackingAccessToken":"abc"}`)
	if err := f.Write(doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Fatalf("Read() = %s, want %s", got, doc)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != defaultPerm {
		t.Errorf("perm = %o, want %o", perm, defaultPerm)
	}

	// No temp files are left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("dir entries = %d, want 1", len(entries))
	}
}

func TestFile_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	f := New(path)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, _ := json.Marshal(map[string]int{"n": i})
			if err := f.Write(doc); err != nil {
				t.Errorf("Write: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var v map[string]int
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("document is not valid JSON after concurrent writes: %v", err)
	}
}

func TestFile_Sealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	f := New(path, WithPassphrase([]byte("correct horse"), seal.AlgorithmChaCha20))
	if !f.Sealed() {
		t.Fatal("Sealed() = false, want true")
	}

	doc := []byte(`{"BackingRefreshToken":"r"}`)
	if err := f.Write(doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if !isSealed(raw) {
		t.Fatal("file on disk is not sealed")
	}
	if bytes.Contains(raw, []byte("BackingRefreshToken")) {
		t.Fatal("sealed file leaks plaintext")
	}

	// A fresh File must derive the key from the stored salt.
	reopened := New(path, WithPassphrase([]byte("correct horse"), seal.AlgorithmChaCha20))
	got, err := reopened.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Fatalf("Read() = %s, want %s", got, doc)
	}

	wrong := New(path, WithPassphrase([]byte("battery staple"), seal.AlgorithmChaCha20))
	if _, err := wrong.Read(); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Read() with wrong passphrase error = %v, want ErrDecrypt", err)
	}

	plain := New(path)
	if _, err := plain.Read(); !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("Read() without passphrase error = %v, want ErrPassphraseRequired", err)
	}
}

func TestFile_PlaintextReadableWhenSealing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	doc := []byte(`{"a":1}`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatal(err)
	}

	f := New(path, WithPassphrase([]byte("pw"), ""))
	got, err := f.Read()
	if err != nil || !bytes.Equal(got, doc) {
		t.Fatalf("Read() = %s, %v, want %s", got, err, doc)
	}

	if err := f.Write(got); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !isSealed(raw) {
		t.Fatal("Write() did not seal a previously plaintext file")
	}
}

func TestFile_SubDocuments(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "bot.db"), WithReservedKeys("BackingAccessToken"))

	var calls int
	f.OnChange(func() { calls++ })

	if err := f.SaveKey("plugin", map[string]int{"x": 1}); err != nil {
		t.Fatalf("SaveKey: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Same value is a no-op.
	if err := f.SaveKey("plugin", map[string]int{"x": 1}); err != nil {
		t.Fatalf("SaveKey: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls after identical SaveKey = %d, want 1", calls)
	}

	if got := string(f.Extra()["plugin"]); got != `{"x":1}` {
		t.Errorf("Extra()[plugin] = %s, want {\"x\":1}", got)
	}

	if err := f.SaveKey("BackingAccessToken", "x"); !errors.Is(err, ErrReservedKey) {
		t.Errorf("SaveKey(reserved) error = %v, want ErrReservedKey", err)
	}

	if err := f.DeleteKey("absent"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls after deleting absent key = %d, want 1", calls)
	}
	if err := f.DeleteKey("plugin"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(f.Extra()) != 0 {
		t.Errorf("Extra() = %v, want empty", f.Extra())
	}
}

func TestFile_AdoptSkipsReserved(t *testing.T) {
	f := New("unused", WithReservedKeys("Known"))
	f.OnChange(func() { t.Fatal("Adopt must not notify") })

	f.Adopt(map[string]json.RawMessage{
		"Known":   json.RawMessage(`1`),
		"Unknown": json.RawMessage(`{"kept":true}`),
	})

	extra := f.Extra()
	if _, ok := extra["Known"]; ok {
		t.Error("Adopt kept a reserved key")
	}
	if string(extra["Unknown"]) != `{"kept":true}` {
		t.Errorf("Extra()[Unknown] = %s", extra["Unknown"])
	}
}

func TestFile_AdoptCompactsValues(t *testing.T) {
	f := New("unused")
	notified := 0
	f.OnChange(func() { notified++ })

	f.Adopt(map[string]json.RawMessage{
		"plugin": json.RawMessage("{\n    \"k\": \"v\"\n  }"),
	})
	if got := string(f.Extra()["plugin"]); got != `{"k":"v"}` {
		t.Fatalf("Extra()[plugin] = %q, want %q", got, `{"k":"v"}`)
	}

	if err := f.SaveKey("plugin", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("SaveKey: %v", err)
	}
	if notified != 0 {
		t.Errorf("notifications = %d, want 0", notified)
	}
}

func TestFile_Close(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "bot.db"))

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !f.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	if err := f.Write([]byte(`{}`)); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close error = %v, want ErrClosed", err)
	}
	if err := f.SaveKey("k", 1); !errors.Is(err, ErrClosed) {
		t.Errorf("SaveKey after Close error = %v, want ErrClosed", err)
	}
}
