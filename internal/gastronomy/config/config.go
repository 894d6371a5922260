// Package config loads gastronomy's runtime configuration: a
// process-relative .gastronomyrc.toml, overlaid with a home-directory
// copy, overlaid with environment variables, using
// github.com/BurntSushi/toml for the file format.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ChainProviderConfig carries the API credentials for an HTTP chain-query
// provider.
type ChainProviderConfig struct {
	BaseURL    string `toml:"baseUrl"`
	APIKeyName string `toml:"apiKeyName"`
	APIKey     string `toml:"apiKey"`
}

// ScriptOverrideConfig names a replacement script for a transaction-shape
// load: the script whose hash is FromHash is replaced by the one read
// from FilePath before evaluation.
type ScriptOverrideConfig struct {
	FilePath      string `toml:"filePath"`
	FromHash      string `toml:"fromHash"`
	ScriptVersion int    `toml:"scriptVersion"`
}

// Config is gastronomy's full runtime configuration.
type Config struct {
	ChainProvider   *ChainProviderConfig    `toml:"chainProvider"`
	ScriptOverrides []ScriptOverrideConfig  `toml:"scriptOverrides"`
	SourceRoot      string                  `toml:"sourceRoot"`
}

// DefaultConfig returns an empty configuration with no chain provider and
// no overrides.
func DefaultConfig() *Config {
	return &Config{}
}

// Load builds the effective configuration by merging, lowest to highest
// precedence: DefaultConfig(), ./.gastronomyrc.toml, ~/.gastronomyrc.toml,
// then SECTION_KEY-shaped environment variables. A missing file at either
// toml layer is not an error; a malformed one is.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFile(cfg, ".gastronomyrc.toml"); err != nil {
		return nil, err
	}
	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeFile(cfg, filepath.Join(home, ".gastronomyrc.toml")); err != nil {
			return nil, err
		}
	}
	applyEnvOverlay(cfg)
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	var layer Config
	if err := toml.Unmarshal(data, &layer); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	mergeInto(cfg, &layer)
	return nil
}

// mergeInto overlays layer's non-zero fields onto cfg. Kept explicit
// (no reflection) over the table of fields gastronomy actually has.
func mergeInto(cfg *Config, layer *Config) {
	if layer.ChainProvider != nil {
		cfg.ChainProvider = layer.ChainProvider
	}
	if len(layer.ScriptOverrides) > 0 {
		cfg.ScriptOverrides = layer.ScriptOverrides
	}
	if layer.SourceRoot != "" {
		cfg.SourceRoot = layer.SourceRoot
	}
}

// applyEnvOverlay overlays the fixed set of GASTRONOMY_SECTION_KEY
// environment variables gastronomy recognizes.
func applyEnvOverlay(cfg *Config) {
	if v, ok := os.LookupEnv("GASTRONOMY_CHAINPROVIDER_BASEURL"); ok {
		ensureChainProvider(cfg).BaseURL = v
	}
	if v, ok := os.LookupEnv("GASTRONOMY_CHAINPROVIDER_APIKEYNAME"); ok {
		ensureChainProvider(cfg).APIKeyName = v
	}
	if v, ok := os.LookupEnv("GASTRONOMY_CHAINPROVIDER_APIKEY"); ok {
		ensureChainProvider(cfg).APIKey = v
	}
	if v, ok := os.LookupEnv("GASTRONOMY_SOURCEROOT"); ok {
		cfg.SourceRoot = v
	}
}

func ensureChainProvider(cfg *Config) *ChainProviderConfig {
	if cfg.ChainProvider == nil {
		cfg.ChainProvider = &ChainProviderConfig{}
	}
	return cfg.ChainProvider
}

// ParseOverrideFlag parses a CLI --script-override value of the form
// FROM_HASH:FILE_PATH:SCRIPT_VERSION into a ScriptOverrideConfig.
func ParseOverrideFlag(raw string) (ScriptOverrideConfig, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return ScriptOverrideConfig{}, fmt.Errorf("script override %q: expected FROM_HASH:FILE_PATH:SCRIPT_VERSION", raw)
	}
	version, err := strconv.Atoi(parts[2])
	if err != nil {
		return ScriptOverrideConfig{}, fmt.Errorf("script override %q: script version must be an integer: %w", raw, err)
	}
	return ScriptOverrideConfig{FromHash: parts[0], FilePath: parts[1], ScriptVersion: version}, nil
}
