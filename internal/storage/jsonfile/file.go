package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/yndnr/botvault/pkg/crypto/seal"
)

var (
	ErrClosed             = errors.New("jsonfile: closed")
	ErrReservedKey        = errors.New("jsonfile: key is reserved")
	ErrPassphraseRequired = errors.New("jsonfile: file is sealed and no passphrase is configured")
	ErrDecrypt            = errors.New("jsonfile: cannot open sealed file, wrong passphrase or corrupted data")
)

const (
	defaultPerm = 0o600
	dirPerm     = 0o750
)

// Option configures a File.
type Option func(*File)

// WithPassphrase enables sealing. An empty passphrase leaves the file in plaintext.
func WithPassphrase(passphrase []byte, algo seal.Algorithm) Option {
	return func(f *File) {
		if len(passphrase) == 0 {
			return
		}
		f.passphrase = append([]byte(nil), passphrase...)
		f.algo = algo
	}
}

// WithReservedKeys makes SaveKey and DeleteKey refuse the given keys.
// Owners pass the top-level keys of their own schema.
func WithReservedKeys(keys ...string) Option {
	return func(f *File) {
		for _, k := range keys {
			f.reserved[k] = struct{}{}
		}
	}
}

// WithPerm sets the permission bits of written files.
func WithPerm(perm os.FileMode) Option {
	return func(f *File) {
		f.perm = perm
	}
}

// File is a JSON document on disk plus its keyed sub-documents.
type File struct {
	path     string
	perm     os.FileMode
	reserved map[string]struct{}

	passphrase []byte
	algo       seal.Algorithm

	writeMu sync.Mutex // serializes Write

	keyMu  sync.Mutex
	salt   []byte
	cipher seal.Cipher

	extraMu sync.RWMutex
	extra   map[string]json.RawMessage

	onChange atomic.Pointer[func()]
	closed   atomic.Bool
}

// New binds a File to path. Nothing is read or written.
func New(path string, opts ...Option) *File {
	f := &File{
		path:     path,
		perm:     defaultPerm,
		reserved: make(map[string]struct{}),
		extra:    make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the bound path.
func (f *File) Path() string {
	return f.path
}

// Sealed reports whether writes are encrypted.
func (f *File) Sealed() bool {
	return len(f.passphrase) > 0
}

// OnChange registers the callback invoked after every effective sub-document
// change. Passing nil detaches it.
func (f *File) OnChange(fn func()) {
	if fn == nil {
		f.onChange.Store(nil)
		return
	}
	f.onChange.Store(&fn)
}

func (f *File) notify() {
	if fn := f.onChange.Load(); fn != nil {
		(*fn)()
	}
}

// Exists reports whether the bound path exists.
func (f *File) Exists() (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Read returns the plaintext document. A missing file yields an error
// matching os.ErrNotExist.
func (f *File) Read() ([]byte, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	if !isSealed(raw) {
		return raw, nil
	}
	if !f.Sealed() {
		return nil, ErrPassphraseRequired
	}
	return f.open(raw)
}

// Write atomically replaces the document.
func (f *File) Write(doc []byte) error {
	if f.closed.Load() {
		return ErrClosed
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	data := doc
	if f.Sealed() {
		sealed, err := f.seal(doc)
		if err != nil {
			return err
		}
		data = sealed
	}
	return writeAtomic(f.path, data, f.perm)
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("jsonfile: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: write: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: chmod: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("jsonfile: rename: %w", err)
	}
	return nil
}

// Adopt replaces the sub-documents with those found on load. It does not
// notify the owner.
func (f *File) Adopt(extra map[string]json.RawMessage) {
	f.extraMu.Lock()
	defer f.extraMu.Unlock()

	f.extra = make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		if _, ok := f.reserved[k]; ok {
			continue
		}
		f.extra[k] = compact(v)
	}
}

// compact strips insignificant whitespace so values read back from an
// indented file compare equal to freshly marshalled ones.
func compact(v json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return append(json.RawMessage(nil), v...)
	}
	return buf.Bytes()
}

// Extra returns a copy of the sub-documents.
func (f *File) Extra() map[string]json.RawMessage {
	f.extraMu.RLock()
	defer f.extraMu.RUnlock()
	return maps.Clone(f.extra)
}

// SaveKey stores value under key. Storing a value equal to the current one
// does not notify the owner.
func (f *File) SaveKey(key string, value any) error {
	if f.closed.Load() {
		return ErrClosed
	}
	if _, ok := f.reserved[key]; ok {
		return fmt.Errorf("%w: %s", ErrReservedKey, key)
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("jsonfile: marshal %s: %w", key, err)
	}

	f.extraMu.Lock()
	if cur, ok := f.extra[key]; ok && bytes.Equal(cur, encoded) {
		f.extraMu.Unlock()
		return nil
	}
	f.extra[key] = encoded
	f.extraMu.Unlock()

	f.notify()
	return nil
}

// DeleteKey removes key. Removing an absent key does not notify the owner.
func (f *File) DeleteKey(key string) error {
	if f.closed.Load() {
		return ErrClosed
	}
	if _, ok := f.reserved[key]; ok {
		return fmt.Errorf("%w: %s", ErrReservedKey, key)
	}

	f.extraMu.Lock()
	_, ok := f.extra[key]
	delete(f.extra, key)
	f.extraMu.Unlock()

	if ok {
		f.notify()
	}
	return nil
}

// Close releases the file. Later writes fail with ErrClosed. Close is idempotent.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	f.onChange.Store(nil)

	f.keyMu.Lock()
	f.cipher = nil
	f.salt = nil
	seal.Wipe(f.passphrase)
	f.keyMu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (f *File) Closed() bool {
	return f.closed.Load()
}
