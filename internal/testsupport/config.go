package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"opacitydb/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The grid defaults to a small 1-3 μm range so builds stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Database = filepath.Join(base, "db", "opacity.db")
	cfgVal.Paths.SourceRoot = filepath.Join(base, "raw")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Grid = config.Grid{MinWavelength: 1, MaxWavelength: 3, OldR: 1e4, NewR: 100}
	cfgVal.Build.MinFreeGiB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithSpecies sets the species list on the test config.
func WithSpecies(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Build.Species = names
	}
}

// WithGrid overrides the wavelength range and resolutions.
func WithGrid(minWavelength, maxWavelength, oldR, newR float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Grid = config.Grid{MinWavelength: minWavelength, MaxWavelength: maxWavelength, OldR: oldR, NewR: newR}
	}
}

// WithOnExisting sets the collision policy.
func WithOnExisting(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Build.OnExisting = policy
	}
}

// WithPatch appends an auxiliary patch; relative files resolve under the
// config's base directory.
func WithPatch(p config.Patch) ConfigOption {
	return func(b *configBuilder) {
		if p.File != "" && !filepath.IsAbs(p.File) {
			p.File = filepath.Join(b.baseDir, p.File)
		}
		b.cfg.Auxiliary.Patches = append(b.cfg.Auxiliary.Patches, p)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceRoot)
}

// WriteConfig serialises cfg to <base>/config.toml and returns the path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return WriteFile(t, filepath.Join(BaseDir(cfg), "config.toml"), string(data))
}
