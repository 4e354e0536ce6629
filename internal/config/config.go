package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	Database   string `toml:"database"`
	SourceRoot string `toml:"source_root"`
	LogDir     string `toml:"log_dir"`
}

// Grid describes the canonical wavelength range and the two resolutions.
type Grid struct {
	MinWavelength float64 `toml:"min_wavelength"` // μm
	MaxWavelength float64 `toml:"max_wavelength"` // μm
	OldR          float64 `toml:"old_r"`
	NewR          float64 `toml:"new_r"`
}

// Build contains batch build settings.
type Build struct {
	Species      []string          `toml:"species"`
	Format       string            `toml:"format"`
	Formats      map[string]string `toml:"formats"`
	AlkaliSource string            `toml:"alkali_source"`
	OnExisting   string            `toml:"on_existing"`
	Workers      int               `toml:"workers"`
	MinFreeGiB   int               `toml:"min_free_gib"`
}

// Patch declares one auxiliary replacement source.
type Patch struct {
	Name          string    `toml:"name"`
	Species       string    `toml:"species"`
	Kind          string    `toml:"kind"`
	File          string    `toml:"file"`
	MinWavelength float64   `toml:"min_wavelength"`
	MaxWavelength float64   `toml:"max_wavelength"`
	Priority      int       `toml:"priority"`
	Temperatures  []float64 `toml:"temperatures"`
	Pressures     []float64 `toml:"pressures"`
}

// Auxiliary contains continuum and patch inputs.
type Auxiliary struct {
	ContinuumFile      string   `toml:"continuum_file"`
	ContinuumPairs     []string `toml:"continuum_pairs"`
	ContinuumOverwrite bool     `toml:"continuum_overwrite"`
	Patches            []Patch  `toml:"patches"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for opacitydb.
//
// Configuration sections:
//   - Paths: database file, raw source root, log directory
//   - Grid: wavelength range and source/target resolving power
//   - Build: species list, file formats, collision policy, workers
//   - Auxiliary: continuum table and ordered patch sources
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Grid      Grid      `toml:"grid"`
	Build     Build     `toml:"build"`
	Auxiliary Auxiliary `toml:"auxiliary"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load locates, decodes, normalizes and validates a configuration file.
// With an empty path it tries the default location and then
// ./opacitydb.toml; when neither exists the defaults are used. It returns
// the resolved path and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(filepath.Dir(resolved)); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile overlays the file onto cfg. Unknown keys are errors so typos
// do not silently fall back to defaults.
func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the directories a build writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{filepath.Dir(c.Paths.Database), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FormatFor returns the source format tag for species, honouring
// per-species overrides.
func (c *Config) FormatFor(species string) string {
	if f, ok := c.Build.Formats[species]; ok && strings.TrimSpace(f) != "" {
		return f
	}
	return c.Build.Format
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. Empty input stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
