package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Default()
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.DataDir != DefaultDataDir {
		t.Errorf("DataDir = %q, want %q", cfg.Storage.DataDir, DefaultDataDir)
	}
	if cfg.Storage.FileExtension != DefaultFileExtension {
		t.Errorf("FileExtension = %q, want %q", cfg.Storage.FileExtension, DefaultFileExtension)
	}
	if cfg.Maintenance.Interval != DefaultMaintenanceInterval {
		t.Errorf("Interval = %v, want %v", cfg.Maintenance.Interval, DefaultMaintenanceInterval)
	}
	if cfg.Redeem.Enabled {
		t.Error("redeem should be disabled by default")
	}
	if cfg.Metrics.Addr != DefaultMetricsAddr {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, DefaultMetricsAddr)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestVerify_ValidConfig(t *testing.T) {
	if err := Verify(validConfig(t)); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestVerify_CreatesDataDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.DataDir = filepath.Join(cfg.Storage.DataDir, "nested", "data")

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := os.Stat(cfg.Storage.DataDir); err != nil {
		t.Fatalf("data directory not created: %v", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, "data_dir"},
		{"extension without dot", func(c *Config) { c.Storage.FileExtension = "db" }, "file_extension"},
		{"bare dot extension", func(c *Config) { c.Storage.FileExtension = "." }, "file_extension"},
		{"unknown cipher", func(c *Config) { c.Storage.Cipher = "rot13"; c.Storage.Passphrase = "x" }, "cipher"},
		{"cipher without passphrase", func(c *Config) { c.Storage.Cipher = "aes-gcm" }, "passphrase"},
		{"short interval", func(c *Config) { c.Maintenance.Interval = 10 * time.Millisecond }, "interval"},
		{"zero rate", func(c *Config) { c.Redeem.Enabled = true; c.Redeem.RatePerMinute = 0 }, "rate_per_minute"},
		{"zero burst", func(c *Config) { c.Redeem.Enabled = true; c.Redeem.Burst = 0 }, "burst"},
		{"missing command", func(c *Config) { c.Redeem.Enabled = true }, "redeem.command"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"path in account", func(c *Config) { c.Accounts = []string{"../main"} }, "path separator"},
		{"hidden account", func(c *Config) { c.Accounts = []string{".main"} }, "dot"},
		{"duplicate account", func(c *Config) { c.Accounts = []string{"main", "main"} }, "twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Verify() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestVerify_DisabledRedeemIgnoresRate(t *testing.T) {
	cfg := validConfig(t)
	cfg.Redeem.RatePerMinute = 0
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Passphrase = "correct horse"
	cfg.Accounts = []string{"main"}

	got := Sanitize(cfg)
	if got.Storage.Passphrase != "co*********se" {
		t.Fatalf("Passphrase = %q, want %q", got.Storage.Passphrase, "co*********se")
	}
	if cfg.Storage.Passphrase != "correct horse" {
		t.Fatal("Sanitize modified the original")
	}
	got.Accounts[0] = "other"
	if cfg.Accounts[0] != "main" {
		t.Fatal("Sanitize shares the accounts slice")
	}

	if maskSecret("abc") != "****" {
		t.Fatalf("maskSecret(short) = %q", maskSecret("abc"))
	}
}

func TestLoad_FileEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botvault.yaml")
	yaml := "storage:\n" +
		"  data_dir: " + filepath.Join(dir, "from-file") + "\n" +
		"maintenance:\n" +
		"  interval: 5m\n" +
		"redeem:\n" +
		"  enabled: true\n" +
		"  rate_per_minute: 6\n" +
		"  command: /usr/local/bin/redeem\n" +
		"accounts:\n" +
		"  - main\n" +
		"  - alt\n" +
		"log:\n" +
		"  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOTVAULT_LOG_FORMAT", "text")
	t.Setenv("BOTVAULT_STORAGE_FILE_EXTENSION", ".bot")

	cfg, err := Load(path, map[string]any{"log.level": "warn"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.DataDir != filepath.Join(dir, "from-file") {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.FileExtension != ".bot" {
		t.Errorf("FileExtension = %q, want .bot", cfg.Storage.FileExtension)
	}
	if cfg.Maintenance.Interval != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", cfg.Maintenance.Interval)
	}
	if !cfg.Redeem.Enabled || cfg.Redeem.RatePerMinute != 6 || cfg.Redeem.Command != "/usr/local/bin/redeem" {
		t.Errorf("Redeem = %+v", cfg.Redeem)
	}
	if cfg.Redeem.Burst != DefaultRedeemBurst {
		t.Errorf("Burst = %d, want default %d", cfg.Redeem.Burst, DefaultRedeemBurst)
	}
	if len(cfg.Accounts) != 2 || cfg.Accounts[0] != "main" || cfg.Accounts[1] != "alt" {
		t.Errorf("Accounts = %v", cfg.Accounts)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_InvalidFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botvault.yaml")
	body := "storage:\n  data_dir: " + dir + "\nlog:\n  level: shout\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path, nil); err == nil {
		t.Fatal("Load() error = nil, want verify error")
	}
}
