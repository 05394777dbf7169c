package main

import (
	"os"

	"github.com/BurntSushi/toml"
	env "github.com/xyproto/env/v2"
)

// config mirrors the teacher's own preference for a small, flat options
// struct (compiler_state.go's CompilerState fields) rather than a nested
// settings tree. Loaded from .befc.toml if present, then overridden by
// environment variables — the same two-layer precedence the teacher
// itself uses (a config file checked into the repo, overridable per
// invocation without editing it).
type config struct {
	DisableOptionalSections bool `toml:"disable_optional_sections"`
	UseColor                bool `toml:"use_color"`
}

func defaultConfig() config {
	return config{UseColor: true}
}

// loadConfig reads path (".befc.toml" style) if it exists, then applies
// BEFC_* environment overrides via xyproto/env/v2.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if env.Has("BEFC_DISABLE_OPTIONAL_SECTIONS") {
		cfg.DisableOptionalSections = env.Bool("BEFC_DISABLE_OPTIONAL_SECTIONS")
	}
	if env.Has("BEFC_USE_COLOR") {
		cfg.UseColor = env.Bool("BEFC_USE_COLOR")
	}

	return cfg, nil
}
