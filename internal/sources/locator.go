package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
)

// AlkaliSource selects how alkali species are laid out under the source root.
type AlkaliSource string

const (
	// AlkaliIndividualFile: <root>/alkalis/<species>.csv[.zst|.gz], one
	// consolidated file per alkali.
	AlkaliIndividualFile AlkaliSource = "individual_file"
	// AlkaliSharedFolder: <root>/alkalis/<species>/ holding per-PT files.
	AlkaliSharedFolder AlkaliSource = "shared_folder"
)

const alkaliDir = "alkalis"

// ParseAlkaliSource validates an alkali convention name.
func ParseAlkaliSource(value string) (AlkaliSource, error) {
	switch AlkaliSource(strings.ToLower(strings.TrimSpace(value))) {
	case AlkaliIndividualFile:
		return AlkaliIndividualFile, nil
	case AlkaliSharedFolder:
		return AlkaliSharedFolder, nil
	default:
		return "", fmt.Errorf("unsupported alkali source %q (want %q or %q)", value, AlkaliIndividualFile, AlkaliSharedFolder)
	}
}

// Locator finds raw files for a species under Root.
type Locator struct {
	Root   string
	Alkali AlkaliSource
}

// Plan lists the files to read for one species and the format to read them with.
type Plan struct {
	Species opacity.Species
	Files   []string
	Format  Format
}

// Discover resolves the files for species. It fails with ErrMissingData when
// nothing is found; a species silently absent from the database is never an
// acceptable outcome.
func (l Locator) Discover(species opacity.Species) (Plan, error) {
	format, err := ParseFormat(species.Format)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Species: species, Format: format}

	if species.Convention == opacity.ConventionAlkali {
		switch l.Alkali {
		case AlkaliIndividualFile:
			file, err := l.findIndividualFile(species.Name)
			if err != nil {
				return Plan{}, err
			}
			plan.Files = []string{file}
			plan.Format = FormatConsolidated
			return plan, nil
		case AlkaliSharedFolder, "":
			plan.Files, err = listFiles(filepath.Join(l.Root, alkaliDir, species.Name))
		default:
			return Plan{}, fmt.Errorf("unsupported alkali source %q", l.Alkali)
		}
	} else {
		plan.Files, err = listFiles(filepath.Join(l.Root, species.Name))
	}
	if err != nil {
		return Plan{}, err
	}
	if len(plan.Files) == 0 {
		return Plan{}, faults.Wrap(faults.ErrMissingData, "sources", "discover",
			fmt.Sprintf("no files for %s under %s", species.Name, l.Root), nil)
	}
	return plan, nil
}

func (l Locator) findIndividualFile(name string) (string, error) {
	dir := filepath.Join(l.Root, alkaliDir)
	for _, ext := range []string{".csv", ".csv.zst", ".csv.gz"} {
		candidate := filepath.Join(dir, name+ext)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", faults.Wrap(faults.ErrMissingData, "sources", "discover",
		fmt.Sprintf("no individual file for %s in %s", name, dir), nil)
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, faults.Wrap(faults.ErrMissingData, "sources", "discover",
			fmt.Sprintf("directory %s does not exist", dir), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// Load discovers and reads every record for species. Two files carrying the
// same (pressure, temperature) point, compared with opacity.SameValue, are a
// format error.
func (l Locator) Load(ctx context.Context, species opacity.Species) ([]Record, error) {
	plan, err := l.Discover(species)
	if err != nil {
		return nil, err
	}
	reader, err := ReaderFor(plan.Format)
	if err != nil {
		return nil, err
	}

	type origin struct {
		key  opacity.PT
		file string
	}
	var seen []origin
	var records []Record
	for _, file := range plan.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := reader.ReadRecords(file)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			key := opacity.PT{Pressure: rec.Pressure, Temperature: rec.Temperature}
			for _, prev := range seen {
				if opacity.SameValue(prev.key.Pressure, key.Pressure) && opacity.SameValue(prev.key.Temperature, key.Temperature) {
					return nil, faults.Wrap(faults.ErrFormat, "sources", "load",
						fmt.Sprintf("%s %s appears in both %s and %s", species.Name, key, filepath.Base(prev.file), filepath.Base(file)), nil)
				}
			}
			seen = append(seen, origin{key: key, file: file})
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return nil, faults.Wrap(faults.ErrMissingData, "sources", "load",
			fmt.Sprintf("no records for %s", species.Name), nil)
	}
	return records, nil
}
