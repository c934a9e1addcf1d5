package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `
instruments:
  - code: "35425587644337450"
    name: "Foolad"
  - code: "7745894403636165"
    name: "Khodro"
interval: 5m
output: market.xlsx
fields:
  closing: [priceMin, priceMax, pClosing]
  fund: [pRedTran, pSubTran]
  overview: [indexLastValue, indexChange]
nonzero_fields: [priceMin, priceMax]
`

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})
}

func TestLoad_Success(t *testing.T) {
	writeConfig(t, validConfig)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if len(cfg.Instruments) != 2 {
		t.Fatalf("Instruments = %d entries, want 2", len(cfg.Instruments))
	}
	if cfg.Instruments[0].Code != "35425587644337450" || cfg.Instruments[0].Name != "Foolad" {
		t.Errorf("Instruments[0] = %+v, want Foolad", cfg.Instruments[0])
	}
	if cfg.Interval != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", cfg.Interval)
	}
	if cfg.Output != "market.xlsx" {
		t.Errorf("Output = %q, want market.xlsx", cfg.Output)
	}
	if len(cfg.Fields.Closing) != 3 || len(cfg.Fields.Fund) != 2 || len(cfg.Fields.Overview) != 2 {
		t.Errorf("Fields = %+v, unexpected selection sizes", cfg.Fields)
	}
	if len(cfg.NonZeroFields) != 2 {
		t.Errorf("NonZeroFields = %v, want 2 entries", cfg.NonZeroFields)
	}
}

func TestLoad_Defaults(t *testing.T) {
	writeConfig(t, validConfig)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want default 10s", cfg.Timeout)
	}
	if !cfg.Concurrent {
		t.Error("Concurrent = false, want default true")
	}
	if cfg.BaseURL != "https://cdn.tsetmc.com/api" {
		t.Errorf("BaseURL = %q, want default", cfg.BaseURL)
	}
	if cfg.IDColumn != "SharedID" {
		t.Errorf("IDColumn = %q, want SharedID", cfg.IDColumn)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	writeConfig(t, validConfig)
	t.Setenv("MARKETLOGGER_OUTPUT", "other.xlsx")
	t.Setenv("MARKETLOGGER_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Output != "other.xlsx" {
		t.Errorf("Output = %q, want env override other.xlsx", cfg.Output)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want env override 3s", cfg.Timeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	writeConfig(t, `
interval: 0s
`)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for incomplete configuration, got nil")
	}

	for _, want := range []string{"instruments", "interval", "output", "fields"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoad_RejectsIncompleteInstrument(t *testing.T) {
	writeConfig(t, `
instruments:
  - code: "123"
interval: 1m
output: market.xlsx
fields:
  closing: [priceMin]
`)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for instrument without name, got nil")
	}
	if !strings.Contains(err.Error(), "missing code or name") {
		t.Errorf("error %q does not mention the incomplete instrument", err)
	}
}

func TestLoad_NoFieldsSelected(t *testing.T) {
	writeConfig(t, `
instruments:
  - code: "123"
    name: "Foolad"
interval: 1m
output: market.xlsx
`)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error when no fields are selected, got nil")
	}
	if !strings.Contains(err.Error(), "no fields selected") {
		t.Errorf("error %q does not mention the empty selection", err)
	}
}
