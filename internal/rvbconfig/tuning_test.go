package rvbconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsWhenEmpty(t *testing.T) {
	cfg := EmptyTuningConfig()
	if got := cfg.GetTimeStepSeconds(); got != 0.1 {
		t.Errorf("GetTimeStepSeconds() = %v, want 0.1", got)
	}
	if got := cfg.GetReflectionRecursionCap(); got != 4 {
		t.Errorf("GetReflectionRecursionCap() = %v, want 4", got)
	}
	if got := cfg.GetNetCDFConventions(); got != "COARDS" {
		t.Errorf("GetNetCDFConventions() = %v, want COARDS", got)
	}
}

func TestLoadTuningConfigPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	if err := os.WriteFile(path, []byte(`{"time_step_seconds": 0.05}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}
	if got := cfg.GetTimeStepSeconds(); got != 0.05 {
		t.Errorf("GetTimeStepSeconds() = %v, want 0.05", got)
	}
	if got := cfg.GetTimeMaxSeconds(); got != 90.0 {
		t.Errorf("GetTimeMaxSeconds() = %v, want default 90", got)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.txt")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Fatal("expected error for non-.json extension")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := EmptyTuningConfig()
	bad := -1.0
	cfg.TimeStepSeconds = &bad
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative time_step_seconds")
	}
}
