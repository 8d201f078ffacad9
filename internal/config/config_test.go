package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Marker != "$schema" || cfg.SentinelImport != "$validate" || cfg.CanonicalImport != "validate" {
		t.Fatalf("unexpected default names: %+v", cfg)
	}
	if len(cfg.Include) != 2 || cfg.Include[0] != "**/*.ts" || cfg.Include[1] != "**/*.tsx" {
		t.Fatalf("unexpected default include: %v", cfg.Include)
	}
	if cfg.FlagPolicy != "intersect" || cfg.MaxDepth != 0 || cfg.Output.Mode != ModeEmit {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "tsreflect.config.json", `{
		"marker": "reflect",
		"include": ["src/**/*.ts"],
		"exclude": ["**/*.spec.ts"],
		"flagPolicy": "EXACT",
		"maxDepth": 8,
		"output": {"mode": "source", "dir": "generated"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Marker != "reflect" {
		t.Errorf("expected marker reflect, got %q", cfg.Marker)
	}
	if cfg.SentinelImport != "$validate" {
		t.Errorf("unset fields must keep defaults, got sentinel %q", cfg.SentinelImport)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "src/**/*.ts" {
		t.Errorf("include must replace the default, got %v", cfg.Include)
	}
	if cfg.FlagPolicy != "exact" || cfg.MaxDepth != 8 {
		t.Errorf("unexpected policy/depth: %q %d", cfg.FlagPolicy, cfg.MaxDepth)
	}
	if cfg.Output.Mode != ModeSource || cfg.Output.Dir != "generated" {
		t.Errorf("unexpected output: %+v", cfg.Output)
	}
}

func TestLoadYAML(t *testing.T) {
	for _, name := range []string{"tsreflect.config.yaml", "tsreflect.config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), name, `
canonicalImport: check
exclude:
  - "**/*.d.ts"
output:
  mode: none
`)
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.CanonicalImport != "check" || cfg.Output.Mode != ModeNone {
				t.Errorf("unexpected config: %+v", cfg)
			}
			if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "**/*.d.ts" {
				t.Errorf("unexpected exclude: %v", cfg.Exclude)
			}
			if len(cfg.Include) != 2 {
				t.Errorf("include must keep defaults, got %v", cfg.Include)
			}
		})
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), "tsreflect.config.yaml", ""))
	if err != nil {
		t.Fatalf("empty YAML must yield defaults: %v", err)
	}
	if cfg.Marker != "$schema" {
		t.Errorf("expected default marker, got %q", cfg.Marker)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"invalid json", "tsreflect.config.json", `{not json`, "failed to parse JSON"},
		{"unknown json field", "tsreflect.config.json", `{"markers": "x"}`, "failed to parse JSON"},
		{"unknown yaml field", "tsreflect.config.yaml", "markers: x\n", "failed to parse YAML"},
		{"empty include", "tsreflect.config.json", `{"include": []}`, "include: must have at least 1 entries"},
		{"bad glob", "tsreflect.config.json", `{"include": ["src/[a.ts"]}`, "invalid glob pattern"},
		{"bad policy", "tsreflect.config.json", `{"flagPolicy": "loose"}`, "flagPolicy: must be one of: intersect exact"},
		{"negative depth", "tsreflect.config.json", `{"maxDepth": -1}`, "maxDepth: must be at least 0"},
		{"bad mode", "tsreflect.config.json", `{"output": {"mode": "bundle"}}`, "output.mode: must be one of"},
		{"source without dir", "tsreflect.config.json", `{"output": {"mode": "source"}}`, "output.dir: required when Mode is source"},
		{"empty marker", "tsreflect.config.yaml", "marker: \"\"\n", "marker: required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	path, err := Discover(dir)
	if err != nil || path != "" {
		t.Fatalf("expected nothing in an empty dir, got %q, %v", path, err)
	}

	writeConfig(t, dir, "tsreflect.config.yml", "")
	path, err = Discover(dir)
	if err != nil || filepath.Base(path) != "tsreflect.config.yml" {
		t.Fatalf("expected yml config, got %q, %v", path, err)
	}

	writeConfig(t, dir, "tsreflect.config.json", "{}")
	path, err = Discover(dir)
	if err != nil || filepath.Base(path) != "tsreflect.config.json" {
		t.Fatalf("json must take priority, got %q, %v", path, err)
	}
}

func TestHash(t *testing.T) {
	a, b := DefaultConfig(), DefaultConfig()
	ha, err := a.Hash()
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := b.Hash()
	if ha != hb || len(ha) != 64 {
		t.Fatalf("equal configs must hash equally: %q vs %q", ha, hb)
	}

	b.MaxDepth = 3
	if hc, _ := b.Hash(); hc == ha {
		t.Error("changing a setting must change the hash")
	}
}
