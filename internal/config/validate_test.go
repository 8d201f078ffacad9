package config

import (
	"strings"
	"testing"

	"github.com/tsreflect/tsreflect/internal/diagnostic"
)

func TestValidateDetailed(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantValid   bool
		wantWarning string
	}{
		{"defaults", func(*Config) {}, true, ""},
		{"missing include", func(c *Config) { c.Include = nil }, false, ""},
		{"non-identifier marker", func(c *Config) { c.Marker = "schema-of" }, true, "is not an identifier"},
		{"non-identifier canonical", func(c *Config) { c.CanonicalImport = "a.b" }, false, ""},
		{"canonical contains sentinel", func(c *Config) { c.CanonicalImport = "$validate2" }, true, "renamed again"},
		{"directory include", func(c *Config) { c.Include = []string{"src/models/"} }, true, `did you mean "src/models/**/*.ts"`},
		{"dir outside source mode", func(c *Config) { c.Output.Dir = "out" }, true, "output.dir: ignored"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			result := cfg.ValidateDetailed()

			if result.IsValid() != tt.wantValid {
				t.Errorf("IsValid = %v, errors: %v", result.IsValid(), result.Errors)
			}
			if tt.wantWarning == "" {
				if len(result.Warnings) != 0 {
					t.Errorf("unexpected warnings: %v", result.Warnings)
				}
				return
			}
			if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], tt.wantWarning) {
				t.Errorf("expected one warning containing %q, got %v", tt.wantWarning, result.Warnings)
			}
		})
	}
}

func TestValidationResult_Report(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Include = nil
	cfg.Marker = "bad-marker"

	c := diagnostic.NewCollector(false, false)
	cfg.ValidateDetailed().Report(c, "tsreflect.config.json")

	diags := c.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", diags)
	}
	for _, d := range diags {
		if d.Category != diagnostic.CategoryConfigInvalid || d.File != "tsreflect.config.json" {
			t.Errorf("unexpected diagnostic %+v", d)
		}
	}
	if !c.HasErrors() || c.Count(diagnostic.SeverityWarning) != 1 {
		t.Errorf("expected 1 error and 1 warning, got %s", c.Summary())
	}
}
