package preflight

import (
	"fmt"
	"path/filepath"
	"strings"

	"opacitydb/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to a build with cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Source root (always checked)
	results = append(results, CheckReadableDirectory("Source root", cfg.Paths.SourceRoot))

	// Database directory; created by init, so it must exist by build time
	dbDir := filepath.Dir(cfg.Paths.Database)
	results = append(results, CheckDirectoryAccess("Database directory", dbDir))

	if cfg.Build.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace("Free space", dbDir, cfg.Build.MinFreeGiB))
	}

	if cfg.Auxiliary.ContinuumFile != "" {
		results = append(results, CheckReadableFile("Continuum table", cfg.Auxiliary.ContinuumFile))
	}
	for _, p := range cfg.Auxiliary.Patches {
		results = append(results, CheckReadableFile("Patch "+p.Name, p.File))
	}

	return results
}

// Failures joins the failed results into one error, or returns nil.
func Failures(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
