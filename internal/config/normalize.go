package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// normalize expands paths and canonicalizes enumerations. Relative auxiliary
// files resolve against baseDir, the directory holding the config file.
func (c *Config) normalize(baseDir string) error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBuild()
	if err := c.normalizeAuxiliary(baseDir); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = defaultDatabase
	}
	if c.Paths.Database, err = ExpandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if strings.TrimSpace(c.Paths.SourceRoot) == "" {
		c.Paths.SourceRoot = defaultSourceRoot
	}
	if c.Paths.SourceRoot, err = ExpandPath(c.Paths.SourceRoot); err != nil {
		return fmt.Errorf("paths.source_root: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBuild() {
	species := make([]string, 0, len(c.Build.Species))
	for _, name := range c.Build.Species {
		if name = strings.TrimSpace(name); name != "" {
			species = append(species, name)
		}
	}
	c.Build.Species = species

	c.Build.Format = lower(c.Build.Format)
	if c.Build.Format == "" {
		c.Build.Format = defaultFormat
	}
	for name, format := range c.Build.Formats {
		c.Build.Formats[name] = lower(format)
	}
	c.Build.AlkaliSource = lower(c.Build.AlkaliSource)
	if c.Build.AlkaliSource == "" {
		c.Build.AlkaliSource = defaultAlkaliSource
	}
	c.Build.OnExisting = lower(c.Build.OnExisting)
	if c.Build.OnExisting == "" {
		c.Build.OnExisting = defaultOnExisting
	}
	if c.Build.Workers == 0 {
		c.Build.Workers = defaultWorkers
	}
}

func (c *Config) normalizeAuxiliary(baseDir string) error {
	var err error
	if c.Auxiliary.ContinuumFile, err = resolveFile(c.Auxiliary.ContinuumFile, baseDir); err != nil {
		return fmt.Errorf("auxiliary.continuum_file: %w", err)
	}
	for i := range c.Auxiliary.Patches {
		p := &c.Auxiliary.Patches[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Species = strings.TrimSpace(p.Species)
		p.Kind = lower(p.Kind)
		if p.File, err = resolveFile(p.File, baseDir); err != nil {
			return fmt.Errorf("auxiliary.patches[%d].file: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = lower(c.Logging.Format)
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = lower(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func resolveFile(value, baseDir string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "~") || filepath.IsAbs(value) || baseDir == "" {
		return ExpandPath(value)
	}
	return ExpandPath(filepath.Join(baseDir, value))
}

func lower(value string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(value))
}
