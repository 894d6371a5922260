package config

import (
	"testing"
)

func TestParseOverrideFlag(t *testing.T) {
	sc, err := ParseOverrideFlag("abc123:scripts/v2.plutus:2")
	if err != nil {
		t.Fatalf("ParseOverrideFlag: %v", err)
	}
	if sc.FromHash != "abc123" || sc.FilePath != "scripts/v2.plutus" || sc.ScriptVersion != 2 {
		t.Errorf("ParseOverrideFlag = %+v, want {abc123 scripts/v2.plutus 2}", sc)
	}
}

func TestParseOverrideFlagRejectsMissingFields(t *testing.T) {
	if _, err := ParseOverrideFlag("abc123:scripts/v2.plutus"); err == nil {
		t.Error("ParseOverrideFlag with two fields: want error, got nil")
	}
}

func TestParseOverrideFlagRejectsNonIntegerVersion(t *testing.T) {
	if _, err := ParseOverrideFlag("abc123:scripts/v2.plutus:latest"); err == nil {
		t.Error("ParseOverrideFlag with a non-integer version: want error, got nil")
	}
}

func TestMergeIntoOverlaysNonZeroFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SourceRoot = "/original"

	mergeInto(cfg, &Config{SourceRoot: "/overlay"})
	if cfg.SourceRoot != "/overlay" {
		t.Errorf("SourceRoot = %q, want overlaid value %q", cfg.SourceRoot, "/overlay")
	}

	mergeInto(cfg, &Config{})
	if cfg.SourceRoot != "/overlay" {
		t.Errorf("SourceRoot = %q after an empty overlay, want unchanged %q", cfg.SourceRoot, "/overlay")
	}
}

func TestMergeIntoChainProviderReplacesWholesale(t *testing.T) {
	cfg := &Config{ChainProvider: &ChainProviderConfig{BaseURL: "https://old"}}
	mergeInto(cfg, &Config{ChainProvider: &ChainProviderConfig{BaseURL: "https://new"}})
	if cfg.ChainProvider.BaseURL != "https://new" {
		t.Errorf("ChainProvider.BaseURL = %q, want %q", cfg.ChainProvider.BaseURL, "https://new")
	}
}

func TestApplyEnvOverlay(t *testing.T) {
	t.Setenv("GASTRONOMY_CHAINPROVIDER_BASEURL", "https://example.test")
	t.Setenv("GASTRONOMY_SOURCEROOT", "/env/root")

	cfg := DefaultConfig()
	applyEnvOverlay(cfg)

	if cfg.ChainProvider == nil || cfg.ChainProvider.BaseURL != "https://example.test" {
		t.Errorf("ChainProvider = %+v, want BaseURL https://example.test", cfg.ChainProvider)
	}
	if cfg.SourceRoot != "/env/root" {
		t.Errorf("SourceRoot = %q, want %q", cfg.SourceRoot, "/env/root")
	}
}
