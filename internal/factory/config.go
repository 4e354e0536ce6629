package factory

import (
	"fmt"

	"opacitydb/internal/config"
	"opacitydb/internal/faults"
	"opacitydb/internal/merge"
	"opacitydb/internal/opacity"
	"opacitydb/internal/sources"
)

// SettingsFromConfig maps the [grid] and [build] sections onto Settings.
func SettingsFromConfig(cfg *config.Config, runID string) (Settings, error) {
	policy, err := ParseOnExisting(cfg.Build.OnExisting)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		MinWavelength: cfg.Grid.MinWavelength,
		MaxWavelength: cfg.Grid.MaxWavelength,
		OldR:          cfg.Grid.OldR,
		NewR:          cfg.Grid.NewR,
		OnExisting:    policy,
		Workers:       cfg.Build.Workers,
		RunID:         runID,
	}, nil
}

// LocatorFromConfig returns a Locator rooted at paths.source_root.
func LocatorFromConfig(cfg *config.Config) (sources.Locator, error) {
	alkali, err := sources.ParseAlkaliSource(cfg.Build.AlkaliSource)
	if err != nil {
		return sources.Locator{}, err
	}
	return sources.Locator{Root: cfg.Paths.SourceRoot, Alkali: alkali}, nil
}

// SpeciesFromConfig resolves names (or build.species when names is empty)
// to species with their configured format tags.
func SpeciesFromConfig(cfg *config.Config, names []string) []opacity.Species {
	if len(names) == 0 {
		names = cfg.Build.Species
	}
	out := make([]opacity.Species, 0, len(names))
	for _, name := range names {
		out = append(out, opacity.NewSpecies(name, cfg.FormatFor(name)))
	}
	return out
}

// LoadPatches reads every [[auxiliary.patches]] entry in declaration order.
// An optical patch restricted to temperatures keeps only those temperatures.
func LoadPatches(specs []config.Patch) ([]*merge.Patch, error) {
	patches := make([]*merge.Patch, 0, len(specs))
	for _, spec := range specs {
		window := merge.Window{MinWavelength: spec.MinWavelength, MaxWavelength: spec.MaxWavelength}
		var (
			patch *merge.Patch
			err   error
		)
		switch spec.Kind {
		case "static":
			var spectrum sources.Spectrum
			spectrum, err = sources.ReadStaticPatch(spec.File)
			if err != nil {
				return nil, fmt.Errorf("patch %s: %w", spec.Name, err)
			}
			patch, err = merge.StaticPatch(spec.Name, spec.Species, spec.Priority, window, spectrum)
		case "optical":
			var src *sources.OpticalPatchSource
			src, err = sources.ReadOpticalPatch(spec.File)
			if err != nil {
				return nil, fmt.Errorf("patch %s: %w", spec.Name, err)
			}
			var spectra map[float64]sources.Spectrum
			spectra, err = selectTemperatures(spec, src)
			if err != nil {
				return nil, err
			}
			patch, err = merge.TemperaturePatch(spec.Name, spec.Species, spec.Priority, window, spectra)
		default:
			err = fmt.Errorf("unknown patch kind %q", spec.Kind)
		}
		if err != nil {
			return nil, err
		}
		patch.Pressures = spec.Pressures
		patches = append(patches, patch)
	}
	return patches, nil
}

func selectTemperatures(spec config.Patch, src *sources.OpticalPatchSource) (map[float64]sources.Spectrum, error) {
	available := src.Temperatures()
	wanted := spec.Temperatures
	if len(wanted) == 0 {
		wanted = available
	}
	out := make(map[float64]sources.Spectrum, len(wanted))
	for _, temp := range wanted {
		found := false
		for _, have := range available {
			if opacity.SameValue(have, temp) {
				spectrum, _ := src.Spectrum(have)
				out[have] = spectrum
				found = true
				break
			}
		}
		if !found {
			return nil, faults.Wrap(faults.ErrMissingData, "factory", "patch",
				fmt.Sprintf("%s has no data at T=%gK in %s", spec.Name, temp, src.Path), nil)
		}
	}
	return out, nil
}
