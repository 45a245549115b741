package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func levels(results []ValidationResult) map[string]int {
	out := map[string]int{}
	for _, r := range results {
		out[r.Level]++
	}
	return out
}

func TestValidateDefaultsWithScriptsDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "python"), 0o755); err != nil {
		t.Fatal(err)
	}
	if results := Default().Validate(root); len(results) != 0 {
		t.Fatalf("expected no findings, got %v", results)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		level  string
		substr string
	}{
		{"missing interpreter", func(c *Config) { c.Python.Path = "/definitely/not/python" }, "error", "python.path"},
		{"bad package name", func(c *Config) { c.Packages.Optional = []string{"zarr; import os"} }, "error", "not a valid module name"},
		{"empty core", func(c *Config) { c.Packages.Core = []string{} }, "warning", "packages.core is empty"},
		{"core and optional", func(c *Config) { c.Packages.Optional = []string{"xarray"} }, "warning", "both core and optional"},
		{"negative plot timeout", func(c *Config) { c.Plot.Timeout = -1 }, "error", "plot.timeout"},
		{"no plot timeout", func(c *Config) { c.Plot.Timeout = 0 }, "warning", "only stop when cancelled"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "error", "log.level"},
	}
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "python"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			results := cfg.Validate(root)
			found := false
			for _, r := range results {
				if r.Level == tt.level && strings.Contains(r.Message, tt.substr) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s containing %q, got %v", tt.level, tt.substr, results)
			}
		})
	}
}

func TestValidateBareCommandNameIsNotChecked(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Python.Path = "python3"
	results := cfg.Validate(root)
	if HasErrors(results) {
		t.Fatalf("bare command names are resolved on PATH, got %v", results)
	}
	if levels(results)["warning"] != 1 {
		t.Fatalf("expected only the scripts.dir warning, got %v", results)
	}
}
