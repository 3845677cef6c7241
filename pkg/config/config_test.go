package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
flows:
  - "**"
includeTags:
  - smoke
excludeTags:
  - wip
env:
  USER: test
  PASS: secret
browserName: chromium
stableRafCount: 3
replaceRafWithTimeout: true
extend:
  - name: "regex-fill"
    source: "engines/regex-fill.js"
    apiVersionConstraint: ">=1.0.0"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Flows) != 1 || cfg.Flows[0] != "**" {
		t.Errorf("expected flows [**], got %v", cfg.Flows)
	}
	if len(cfg.IncludeTags) != 1 || cfg.IncludeTags[0] != "smoke" {
		t.Errorf("expected includeTags [smoke], got %v", cfg.IncludeTags)
	}
	if len(cfg.ExcludeTags) != 1 || cfg.ExcludeTags[0] != "wip" {
		t.Errorf("expected excludeTags [wip], got %v", cfg.ExcludeTags)
	}
	if cfg.Env["USER"] != "test" || cfg.Env["PASS"] != "secret" {
		t.Errorf("expected env {USER:test, PASS:secret}, got %v", cfg.Env)
	}
	if cfg.BrowserName != "chromium" {
		t.Errorf("expected browserName chromium, got %s", cfg.BrowserName)
	}
	if cfg.StableRafCount != 3 {
		t.Errorf("expected stableRafCount 3, got %d", cfg.StableRafCount)
	}
	if !cfg.ReplaceRafWithTimeout {
		t.Error("expected replaceRafWithTimeout to be true")
	}
	if len(cfg.Extend) != 1 || cfg.Extend[0].Name != "regex-fill" {
		t.Errorf("expected one extend entry named regex-fill, got %v", cfg.Extend)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `flows: [invalid yaml`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := ``
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Flows) != 0 {
		t.Errorf("expected empty flows, got %v", cfg.Flows)
	}
}

func TestLoadFromDir_ConfigYaml(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `browserName: firefox`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BrowserName != "firefox" {
		t.Errorf("expected browserName firefox, got %s", cfg.BrowserName)
	}
}

func TestLoadFromDir_ConfigYml(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	content := `browserName: webkit`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BrowserName != "webkit" {
		t.Errorf("expected browserName webkit, got %s", cfg.BrowserName)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should return empty config
	if cfg.BrowserName != "" {
		t.Errorf("expected empty browserName, got %s", cfg.BrowserName)
	}
	if len(cfg.Flows) != 0 {
		t.Errorf("expected empty flows, got %v", cfg.Flows)
	}
}

func TestLoadFromDir_PrefersYamlOverYml(t *testing.T) {
	dir := t.TempDir()

	// Create both config.yaml and config.yml
	yamlContent := `browserName: chromium`
	ymlContent := `browserName: firefox`

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(ymlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should prefer config.yaml
	if cfg.BrowserName != "chromium" {
		t.Errorf("expected browserName chromium (from config.yaml), got %s", cfg.BrowserName)
	}
}

func TestResolveExtensions(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "engines"), 0755); err != nil {
		t.Fatal(err)
	}
	src := "({query(root, selector) { return []; }})"
	if err := os.WriteFile(filepath.Join(dir, "engines", "custom.js"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Extend: []ExtendConfig{{Name: "custom", Source: "engines/custom.js"}}}
	resolved, err := cfg.ResolveExtensions(dir)
	if err != nil {
		t.Fatalf("ResolveExtensions: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved extension, got %d", len(resolved))
	}
	if resolved[0].Body != src {
		t.Errorf("Body = %q, want %q", resolved[0].Body, src)
	}
}

func TestResolveExtensions_NoMatch(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Extend: []ExtendConfig{{Name: "missing", Source: "engines/missing.js"}}}

	if _, err := cfg.ResolveExtensions(dir); err == nil {
		t.Error("expected an error when the source glob matches no file")
	}
}
