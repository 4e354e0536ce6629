package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	knownFormats       = []string{"columns", "uniform", "named", "consolidated"}
	knownAlkaliSources = []string{"individual_file", "shared_folder"}
	knownOnExisting    = []string{"fail", "skip", "overwrite"}
	knownPatchKinds    = []string{"optical", "static"}
	knownLogFormats    = []string{"console", "json"}
	knownLogLevels     = []string{"debug", "info", "warn", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGrid(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateAuxiliary(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Database) == "" {
		return errors.New("paths.database must be set")
	}
	if strings.TrimSpace(c.Paths.SourceRoot) == "" {
		return errors.New("paths.source_root must be set")
	}
	return nil
}

func (c *Config) validateGrid() error {
	g := c.Grid
	if !positive(g.MinWavelength) || !positive(g.MaxWavelength) {
		return errors.New("grid.min_wavelength and grid.max_wavelength must be positive")
	}
	if g.MinWavelength >= g.MaxWavelength {
		return fmt.Errorf("grid.min_wavelength (%g) must be below grid.max_wavelength (%g)", g.MinWavelength, g.MaxWavelength)
	}
	if !positive(g.OldR) || g.OldR <= 0.5 {
		return fmt.Errorf("grid.old_r must be greater than 0.5, got %g", g.OldR)
	}
	if !positive(g.NewR) {
		return fmt.Errorf("grid.new_r must be positive, got %g", g.NewR)
	}
	if g.NewR > g.OldR {
		return fmt.Errorf("grid.new_r (%g) must not exceed grid.old_r (%g)", g.NewR, g.OldR)
	}
	return nil
}

func (c *Config) validateBuild() error {
	if !oneOf(c.Build.Format, knownFormats) {
		return fmt.Errorf("build.format must be one of %s, got %q", strings.Join(knownFormats, ", "), c.Build.Format)
	}
	for name, format := range c.Build.Formats {
		if !oneOf(format, knownFormats) {
			return fmt.Errorf("build.formats.%s must be one of %s, got %q", name, strings.Join(knownFormats, ", "), format)
		}
	}
	if !oneOf(c.Build.AlkaliSource, knownAlkaliSources) {
		return fmt.Errorf("build.alkali_source must be one of %s, got %q", strings.Join(knownAlkaliSources, ", "), c.Build.AlkaliSource)
	}
	if !oneOf(c.Build.OnExisting, knownOnExisting) {
		return fmt.Errorf("build.on_existing must be one of %s, got %q", strings.Join(knownOnExisting, ", "), c.Build.OnExisting)
	}
	if c.Build.Workers < 1 {
		return errors.New("build.workers must be at least 1")
	}
	if c.Build.MinFreeGiB < 0 {
		return errors.New("build.min_free_gib must be zero or positive")
	}
	seen := make(map[string]struct{}, len(c.Build.Species))
	for _, name := range c.Build.Species {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("build.species lists %q twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (c *Config) validateAuxiliary() error {
	names := make(map[string]struct{}, len(c.Auxiliary.Patches))
	for i, p := range c.Auxiliary.Patches {
		field := fmt.Sprintf("auxiliary.patches[%d]", i)
		if p.Name == "" {
			return fmt.Errorf("%s.name must be set", field)
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("%s.name %q is not unique", field, p.Name)
		}
		names[p.Name] = struct{}{}
		if p.Species == "" {
			return fmt.Errorf("%s.species must be set", field)
		}
		if !oneOf(p.Kind, knownPatchKinds) {
			return fmt.Errorf("%s.kind must be one of %s, got %q", field, strings.Join(knownPatchKinds, ", "), p.Kind)
		}
		if p.File == "" {
			return fmt.Errorf("%s.file must be set", field)
		}
		if p.MinWavelength < 0 || p.MaxWavelength < 0 {
			return fmt.Errorf("%s wavelength bounds must not be negative", field)
		}
		if p.MinWavelength > 0 && p.MaxWavelength > 0 && p.MinWavelength >= p.MaxWavelength {
			return fmt.Errorf("%s.min_wavelength must be below max_wavelength", field)
		}
		if p.Kind == "static" && len(p.Temperatures) > 0 {
			return fmt.Errorf("%s: static patches apply at every temperature; remove temperatures", field)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !oneOf(c.Logging.Format, knownLogFormats) {
		return fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(knownLogFormats, ", "), c.Logging.Format)
	}
	if !oneOf(c.Logging.Level, knownLogLevels) {
		return fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(knownLogLevels, ", "), c.Logging.Level)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
