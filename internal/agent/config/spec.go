// Package config defines the agent configuration structure.
package config

import "time"

// Config is the complete agent configuration.
type Config struct {
	Storage     StorageSection     `koanf:"storage"`
	Maintenance MaintenanceSection `koanf:"maintenance"`
	Redeem      RedeemSection      `koanf:"redeem"`
	Metrics     MetricsSection     `koanf:"metrics"`
	Log         LogSection         `koanf:"log"`

	// Accounts lists the accounts to open. Empty means every database file
	// found in Storage.DataDir.
	Accounts []string `koanf:"accounts"`
}

// StorageSection configures where account databases live.
type StorageSection struct {
	DataDir       string `koanf:"data_dir"`
	FileExtension string `koanf:"file_extension"`

	// Passphrase enables sealing of database files at rest.
	Passphrase string `koanf:"passphrase"`
	// Cipher selects the AEAD. Empty picks one for the platform.
	Cipher string `koanf:"cipher"`
}

// MaintenanceSection configures the periodic expiry sweep.
type MaintenanceSection struct {
	Interval time.Duration `koanf:"interval"`
}

// RedeemSection configures background draining of redemption queues.
type RedeemSection struct {
	Enabled       bool    `koanf:"enabled"`
	RatePerMinute float64 `koanf:"rate_per_minute"`
	Burst         int     `koanf:"burst"`

	// Command is run once per key. Exit status 0 means redeemed, 2 means
	// permanently rejected, anything else is retried on the next pass.
	Command string `koanf:"command"`
}

// MetricsSection configures the Prometheus endpoint. An empty Addr disables it.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
