package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yndnr/botvault/internal/telemetry/logger"
	"github.com/yndnr/botvault/pkg/crypto/seal"
)

// MinMaintenanceInterval bounds how often the sweep may run.
const MinMaintenanceInterval = time.Second

// Verify validates the configuration and creates the data directory.
func Verify(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if cfg.Maintenance.Interval < MinMaintenanceInterval {
		return fmt.Errorf("maintenance.interval must be at least %s", MinMaintenanceInterval)
	}
	if err := verifyRedeem(&cfg.Redeem); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return verifyAccounts(cfg.Accounts)
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if !strings.HasPrefix(cfg.FileExtension, ".") || len(cfg.FileExtension) < 2 {
		return fmt.Errorf("storage.file_extension %q must start with a dot", cfg.FileExtension)
	}
	switch seal.Algorithm(cfg.Cipher) {
	case "", seal.AlgorithmAESGCM, seal.AlgorithmChaCha20:
	default:
		return fmt.Errorf("storage.cipher %q is not supported", cfg.Cipher)
	}
	if cfg.Cipher != "" && cfg.Passphrase == "" {
		return errors.New("storage.cipher requires storage.passphrase")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	return nil
}

func verifyRedeem(cfg *RedeemSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RatePerMinute <= 0 {
		return errors.New("redeem.rate_per_minute must be positive")
	}
	if cfg.Burst < 1 {
		return errors.New("redeem.burst must be at least 1")
	}
	if strings.TrimSpace(cfg.Command) == "" {
		return errors.New("redeem.command is required when redeem is enabled")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if err := logger.ValidateFormat(cfg.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	return nil
}

func verifyAccounts(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if err := ValidateAccountName(name); err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("accounts: %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ValidateAccountName reports whether name can be used as a database file
// stem inside the data directory.
func ValidateAccountName(name string) error {
	switch {
	case name == "":
		return errors.New("account name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("account name %q is reserved", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("account name %q contains a path separator", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("account name %q must not start with a dot", name)
	}
	return nil
}
