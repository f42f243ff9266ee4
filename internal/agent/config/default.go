package config

import "time"

// Default configuration values.
const (
	DefaultDataDir       = "/var/lib/botvault"
	DefaultFileExtension = ".db"

	DefaultMaintenanceInterval = time.Hour

	DefaultRedeemRatePerMinute = 3
	DefaultRedeemBurst         = 1

	DefaultMetricsAddr = "127.0.0.1:9470"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default agent configuration.
func Default() *Config {
	return &Config{
		Storage: StorageSection{
			DataDir:       DefaultDataDir,
			FileExtension: DefaultFileExtension,
		},
		Maintenance: MaintenanceSection{
			Interval: DefaultMaintenanceInterval,
		},
		Redeem: RedeemSection{
			Enabled:       false,
			RatePerMinute: DefaultRedeemRatePerMinute,
			Burst:         DefaultRedeemBurst,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
