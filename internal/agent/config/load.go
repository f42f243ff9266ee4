package config

import (
	"fmt"

	"github.com/yndnr/botvault/internal/infra/confloader"
)

// Load reads the configuration from path (optional), BOTVAULT_* environment
// variables and overrides, in that order, on top of Default. The result is
// verified.
func Load(path string, overrides map[string]any) (*Config, error) {
	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}
	return cfg, nil
}
