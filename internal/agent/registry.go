package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yndnr/botvault/internal/agent/config"
	"github.com/yndnr/botvault/internal/storage/botdb"
	"github.com/yndnr/botvault/internal/telemetry/logger"
	"github.com/yndnr/botvault/internal/telemetry/metric"
	"github.com/yndnr/botvault/pkg/crypto/seal"
)

var (
	ErrAccountOpen     = errors.New("agent: account already open")
	ErrAccountNotFound = errors.New("agent: account not found")
	ErrRegistryClosed  = errors.New("agent: registry closed")
)

// Account is one bot account bound to its database file.
type Account struct {
	name string
	db   *botdb.Database
}

// Name returns the account name.
func (a *Account) Name() string { return a.name }

// DB returns the account database.
func (a *Account) DB() *botdb.Database { return a.db }

// RegistryConfig holds what the registry needs to open databases.
type RegistryConfig struct {
	DataDir       string
	FileExtension string
	Passphrase    []byte
	Cipher        seal.Algorithm

	Logger  logger.Logger
	Metrics *metric.Metrics
}

// RegistryConfigFrom builds a RegistryConfig from the storage section.
func RegistryConfigFrom(s config.StorageSection, log logger.Logger, m *metric.Metrics) RegistryConfig {
	rc := RegistryConfig{
		DataDir:       s.DataDir,
		FileExtension: s.FileExtension,
		Cipher:        seal.Algorithm(s.Cipher),
		Logger:        log,
		Metrics:       m,
	}
	if s.Passphrase != "" {
		rc.Passphrase = []byte(s.Passphrase)
	}
	return rc
}

// Registry maps account names to open accounts.
type Registry struct {
	cfg    RegistryConfig
	logger logger.Logger

	mu       sync.RWMutex
	accounts map[string]*Account
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.FileExtension == "" {
		cfg.FileExtension = config.DefaultFileExtension
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		cfg:      cfg,
		logger:   log,
		accounts: make(map[string]*Account),
	}
}

// PathFor returns the database path of the named account.
func (r *Registry) PathFor(name string) string {
	return filepath.Join(r.cfg.DataDir, name+r.cfg.FileExtension)
}

// Open loads or creates the database of the named account and registers it.
// A load failure means the account cannot start and is returned as is.
func (r *Registry) Open(ctx context.Context, name string) (*Account, error) {
	if err := config.ValidateAccountName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, ok := r.accounts[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountOpen, name)
	}

	opts := []botdb.Option{
		botdb.WithLogger(r.logger.Slog().With("account", name)),
	}
	if r.cfg.Metrics != nil {
		opts = append(opts, botdb.WithObserver(r.cfg.Metrics.ForAccount(name)))
	}
	if len(r.cfg.Passphrase) > 0 {
		pass := append([]byte(nil), r.cfg.Passphrase...)
		opts = append(opts, botdb.WithPassphrase(pass, r.cfg.Cipher))
	}

	db, err := botdb.CreateOrLoad(ctx, r.PathFor(name), opts...)
	if err != nil {
		return nil, fmt.Errorf("open account %s: %w", name, err)
	}

	acct := &Account{name: name, db: db}
	r.accounts[name] = acct
	r.logger.Info("account opened", "account", name, "path", db.Path())
	return acct, nil
}

// OpenAll opens every named account. An account that fails to open is
// logged and skipped; the failures are returned joined. Cancelling ctx
// stops before the next account.
func (r *Registry) OpenAll(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := r.Open(ctx, name); err != nil {
			r.logger.Error("account skipped", "account", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discover lists the accounts whose database files exist in the data
// directory, sorted by name.
func (r *Registry) Discover() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), r.cfg.FileExtension)
		if !ok || config.ValidateAccountName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the named account.
func (r *Registry) Get(name string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[name]
	return acct, ok
}

// Names returns the open account names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Each calls fn for every open account in name order, stopping when fn
// returns false.
func (r *Registry) Each(fn func(*Account) bool) {
	for _, name := range r.Names() {
		acct, ok := r.Get(name)
		if !ok {
			continue
		}
		if !fn(acct) {
			return
		}
	}
}

// CloseAccount closes and unregisters one account.
func (r *Registry) CloseAccount(name string) error {
	r.mu.Lock()
	acct, ok := r.accounts[name]
	delete(r.accounts, name)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	return acct.db.Close()
}

// Close closes every account, flushing pending writes. Later opens fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	accounts := r.accounts
	r.accounts = make(map[string]*Account)
	r.mu.Unlock()

	var errs []error
	for name, acct := range accounts {
		if err := acct.db.Close(); err != nil {
			r.logger.Error("close account failed", "account", name, "error", err)
			errs = append(errs, fmt.Errorf("close account %s: %w", name, err))
		}
	}
	r.logger.Info("registry closed", "accounts", len(accounts))
	return errors.Join(errs...)
}

// QueueDepths reports the redemption queue depth of every account, indexed
// by domain.Priority.
func (r *Registry) QueueDepths() map[string][3]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][3]int, len(r.accounts))
	for name, acct := range r.accounts {
		out[name] = acct.db.RedeemDepths()
	}
	return out
}
