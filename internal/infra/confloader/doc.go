// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command-line flags, as a map)
//  2. Environment variables with the BOTVAULT_ prefix
//  3. The YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes to the configuration file so the agent can
// reload it at runtime.
package confloader
