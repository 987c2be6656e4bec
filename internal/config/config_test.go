package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "primec.toml")

	content := `
entry = "/main"
default_effects = ["io_out", "io_err"]
emit = "vm"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Entry != "/main" {
		t.Errorf("Entry: got %q, want /main", cfg.Entry)
	}
	if len(cfg.DefaultEffects) != 2 || cfg.DefaultEffects[0] != "io_out" {
		t.Errorf("DefaultEffects: got %v", cfg.DefaultEffects)
	}
	if cfg.Emit != "vm" {
		t.Errorf("Emit: got %q, want vm", cfg.Emit)
	}
}

func TestLoadSearchesParents(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "project", "src")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}

	configPath := filepath.Join(tmpDir, "project", "primec.toml")
	if err := os.WriteFile(configPath, []byte(`entry = "/main"`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, foundPath, err := Load(subDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	if foundPath != configPath {
		t.Errorf("found config at %s, expected %s", foundPath, configPath)
	}
	if cfg.Entry != "/main" {
		t.Errorf("Entry: got %q, want /main", cfg.Entry)
	}
}

func TestLoadNoConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, path, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %v", cfg)
	}
	if path != "" {
		t.Errorf("expected empty path, got %s", path)
	}
}

func TestMergeCLIOverridesConfig(t *testing.T) {
	cfg := &Config{Entry: "/main", Emit: "vm"}
	eff := cfg.Merge(CLIOverrides{Emit: "cpp"})
	if eff.Emit != "cpp" {
		t.Errorf("Emit: got %q, want cpp (CLI override)", eff.Emit)
	}
	if eff.Entry != "/main" {
		t.Errorf("Entry: got %q, want /main (from config)", eff.Entry)
	}
}

func TestMergeNilConfig(t *testing.T) {
	eff := (*Config)(nil).Merge(CLIOverrides{Entry: "/main"})
	if eff.Entry != "/main" {
		t.Errorf("Entry: got %q, want /main", eff.Entry)
	}
}

func TestConfigFileNamesPriority(t *testing.T) {
	tmpDir := t.TempDir()

	rcPath := filepath.Join(tmpDir, ".primecrc.toml")
	if err := os.WriteFile(rcPath, []byte(`emit = "vm"`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, foundPath, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if filepath.Base(foundPath) != ".primecrc.toml" {
		t.Errorf("expected .primecrc.toml, got %s", filepath.Base(foundPath))
	}

	jsonPath := filepath.Join(tmpDir, "primec.toml")
	if err := os.WriteFile(jsonPath, []byte(`emit = "cpp"`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, foundPath, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if filepath.Base(foundPath) != "primec.toml" {
		t.Errorf("expected primec.toml (higher priority), got %s", filepath.Base(foundPath))
	}
	if cfg.Emit != "cpp" {
		t.Errorf("Emit: got %q, want cpp", cfg.Emit)
	}
}
