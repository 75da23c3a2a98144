package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
)

// ConfigFile is the name looked up when no --config is given.
const ConfigFile = "chicc.toml"

// Config is the on-disk chicc.toml.
type Config struct {
	Target TargetConfig `toml:"target"`
	Emit   EmitConfig   `toml:"emit"`
	Trace  TraceConfig  `toml:"trace"`
}

type TargetConfig struct {
	Arch    string `toml:"arch"`
	OS      string `toml:"os"`
	Runtime string `toml:"runtime"`
}

type EmitConfig struct {
	// Jobs bounds parallel function emission, 0 means GOMAXPROCS.
	Jobs              int    `toml:"jobs"`
	ModuleName        string `toml:"module_name"`
	ErasePlaceholders bool   `toml:"erase_placeholders"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// DefaultConfig is what applies when no file exists.
func DefaultConfig() Config {
	return Config{
		Target: TargetConfig{Arch: "x86_64", OS: "linux", Runtime: "native"},
		Emit:   EmitConfig{ErasePlaceholders: true},
		Trace:  TraceConfig{Level: "off", Format: "text", Output: "stderr"},
	}
}

// LoadConfig reads path over the defaults. An empty path searches for
// chicc.toml from the working directory upwards and falls back to the
// defaults when none is found; an explicit path must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		found, ok, err := FindConfig(".")
		if err != nil || !ok {
			return cfg, err
		}
		path = found
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Emit.Jobs < 0 {
		return cfg, fmt.Errorf("%s: emit.jobs must not be negative", path)
	}
	return cfg, nil
}

// FindConfig walks up from startDir to locate chicc.toml.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// TargetDesc resolves the [target] section.
func (c Config) TargetDesc() (layout.Target, error) {
	return layout.ParseTarget(c.Target.Arch, c.Target.OS, c.Target.Runtime)
}
