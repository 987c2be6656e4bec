// Package config loads project-level compiler defaults from a
// primec.toml file, searched for starting at the current directory
// and walking up through parents.
//
// Grounded on the teacher's internal/config (which searches cwd then
// parent directories for wgslmin.json/.wgslminrc via encoding/json) —
// same search algorithm, TOML instead of JSON via
// github.com/BurntSushi/toml. CLI flags always override the project
// file, matching the teacher's "CLI overrides config" rule.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileNames are searched for, in order, at each directory level.
var ConfigFileNames = []string{
	"primec.toml",
	".primecrc.toml",
}

// Config is the project file structure. All fields are optional.
type Config struct {
	Entry          string   `toml:"entry"`
	DefaultEffects []string `toml:"default_effects"`
	TextFilters    []string `toml:"text_filters"`
	IncludePath    string   `toml:"include_path"`
	Emit           string   `toml:"emit"`
	OutDir         string   `toml:"out_dir"`
}

// Load searches startDir and its parents for a project file. Returns
// nil, "", nil if none is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile parses a single project file.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CLIOverrides carries flag values that, when set, take precedence
// over the project file's corresponding field.
type CLIOverrides struct {
	Entry          string
	DefaultEffects []string
	TextFilters    []string
	IncludePath    string
	Emit           string
	OutDir         string
}

// Merge applies CLI overrides onto the project file's Config,
// returning the effective settings for a compile invocation.
func (c *Config) Merge(cli CLIOverrides) Config {
	eff := Config{}
	if c != nil {
		eff = *c
	}
	if cli.Entry != "" {
		eff.Entry = cli.Entry
	}
	if len(cli.DefaultEffects) > 0 {
		eff.DefaultEffects = cli.DefaultEffects
	}
	if len(cli.TextFilters) > 0 {
		eff.TextFilters = cli.TextFilters
	}
	if cli.IncludePath != "" {
		eff.IncludePath = cli.IncludePath
	}
	if cli.Emit != "" {
		eff.Emit = cli.Emit
	}
	if cli.OutDir != "" {
		eff.OutDir = cli.OutDir
	}
	return eff
}
