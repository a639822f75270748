package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Unexpected server address %q", cfg.ServerAddress())
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("Expected 120s request timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.MongoDatabase != "radiology_db" || cfg.MongoCollection != "ai_reports" {
		t.Errorf("Unexpected Mongo defaults: %q/%q", cfg.MongoDatabase, cfg.MongoCollection)
	}
	if cfg.MinResolution != 512 {
		t.Errorf("Expected minimum resolution 512, got %d", cfg.MinResolution)
	}
	if cfg.MonteCarloSamples != 5 || cfg.SearchIterations != 3 {
		t.Errorf("Unexpected scoring defaults: samples=%d iterations=%d",
			cfg.MonteCarloSamples, cfg.SearchIterations)
	}
	if cfg.VariancePenalty != 0.5 || cfg.UncertaintyThreshold != 0.1 {
		t.Errorf("Unexpected policy defaults: penalty=%f threshold=%f",
			cfg.VariancePenalty, cfg.UncertaintyThreshold)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MC_SAMPLES", "10")
	t.Setenv("SEARCH_ITERATIONS", "0")
	t.Setenv("VARIANCE_PENALTY", "0.25")
	t.Setenv("NARRATIVE_TIMEOUT", "30s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Port)
	}
	if cfg.MonteCarloSamples != 10 {
		t.Errorf("Expected 10 samples, got %d", cfg.MonteCarloSamples)
	}
	if cfg.SearchIterations != 0 {
		t.Errorf("Expected zero iteration budget allowed, got %d", cfg.SearchIterations)
	}
	if cfg.VariancePenalty != 0.25 {
		t.Errorf("Expected penalty 0.25, got %f", cfg.VariancePenalty)
	}
	if cfg.NarrativeTimeout != 30*time.Second {
		t.Errorf("Expected 30s narrative timeout, got %s", cfg.NarrativeTimeout)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "PORT", "not-a-port"},
		{"port out of range", "PORT", "70000"},
		{"negative samples", "MC_SAMPLES", "0"},
		{"negative iterations", "SEARCH_ITERATIONS", "-1"},
		{"negative body size", "MAX_REQUEST_BODY_SIZE", "-5"},
		{"negative penalty", "VARIANCE_PENALTY", "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestArchiveEnabled(t *testing.T) {
	cfg := &Config{AzureAccount: "acct", AzureKey: "key", AzureContainer: "images"}
	if !cfg.ArchiveEnabled() {
		t.Error("Expected archiving enabled with full Azure settings")
	}
	cfg.AzureKey = ""
	if cfg.ArchiveEnabled() {
		t.Error("Expected archiving disabled without a storage key")
	}
}
