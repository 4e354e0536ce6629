package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"opacitydb/internal/faults"
	"opacitydb/internal/spectral"
)

// Format names a supported raw file layout.
type Format string

const (
	// FormatColumns: per-PT text file whose first data line is "P T",
	// followed by "wavenumber cross_section" lines.
	FormatColumns Format = "columns"
	// FormatUniform: per-PT text file with header "P T nu_min nu_max npts"
	// followed by npts values on a uniform wavenumber grid.
	FormatUniform Format = "uniform"
	// FormatNamed: per-PT two-column text file; P and T come from the file
	// name, e.g. "H2O_1e-3bar_300K.txt".
	FormatNamed Format = "named"
	// FormatConsolidated: one CSV per species with columns pressure,
	// temperature, wavenumber, cross_section.
	FormatConsolidated Format = "consolidated"
)

// Formats lists every supported tag.
func Formats() []Format {
	return []Format{FormatColumns, FormatUniform, FormatNamed, FormatConsolidated}
}

// ParseFormat validates a format tag.
func ParseFormat(value string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", faults.Wrap(faults.ErrFormat, "sources", "format", fmt.Sprintf("unsupported format %q", value), nil)
}

// Record is one (pressure, temperature) spectrum in native sampling.
type Record struct {
	Pressure      float64
	Temperature   float64
	Wavenumbers   []float64
	CrossSections []float64
	Source        string
}

// Reader reads every record stored in a file.
type Reader interface {
	ReadRecords(path string) ([]Record, error)
}

// ReaderFor returns the reader for a format tag.
func ReaderFor(format Format) (Reader, error) {
	switch format {
	case FormatColumns:
		return columnsReader{}, nil
	case FormatUniform:
		return uniformReader{}, nil
	case FormatNamed:
		return namedReader{}, nil
	case FormatConsolidated:
		return consolidatedReader{}, nil
	default:
		return nil, faults.Wrap(faults.ErrFormat, "sources", "format", fmt.Sprintf("unsupported format %q", format), nil)
	}
}

func formatError(path string, line int, message string, err error) error {
	where := filepath.Base(path)
	if line > 0 {
		where = fmt.Sprintf("%s:%d", where, line)
	}
	return faults.Wrap(faults.ErrFormat, "sources", where, message, err)
}

type columnsReader struct{}

func (columnsReader) ReadRecords(path string) ([]Record, error) {
	rc, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	lines := newLineScanner(rc)
	if !lines.Next() {
		if err := lines.Err(); err != nil {
			return nil, formatError(path, lines.line, "read header", err)
		}
		return nil, formatError(path, 0, "missing P T header", nil)
	}
	if len(lines.fields) != 2 {
		return nil, formatError(path, lines.line, fmt.Sprintf("header has %d fields, want P T", len(lines.fields)), nil)
	}
	header, err := parseFloats(lines.fields)
	if err != nil {
		return nil, formatError(path, lines.line, "parse header", err)
	}

	rec := Record{Pressure: header[0], Temperature: header[1], Source: path}
	for lines.Next() {
		if len(lines.fields) != 2 {
			return nil, formatError(path, lines.line, fmt.Sprintf("expected 2 columns, got %d", len(lines.fields)), nil)
		}
		pair, err := parseFloats(lines.fields)
		if err != nil {
			return nil, formatError(path, lines.line, "parse sample", err)
		}
		rec.Wavenumbers = append(rec.Wavenumbers, pair[0])
		rec.CrossSections = append(rec.CrossSections, pair[1])
	}
	if err := lines.Err(); err != nil {
		return nil, formatError(path, lines.line, "read samples", err)
	}
	if len(rec.Wavenumbers) == 0 {
		return nil, formatError(path, 0, "no samples", nil)
	}
	return []Record{rec}, nil
}

type uniformReader struct{}

func (uniformReader) ReadRecords(path string) ([]Record, error) {
	rc, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	lines := newLineScanner(rc)
	if !lines.Next() {
		if err := lines.Err(); err != nil {
			return nil, formatError(path, lines.line, "read header", err)
		}
		return nil, formatError(path, 0, "missing header", nil)
	}
	if len(lines.fields) != 5 {
		return nil, formatError(path, lines.line, fmt.Sprintf("header has %d fields, want P T nu_min nu_max npts", len(lines.fields)), nil)
	}
	header, err := parseFloats(lines.fields)
	if err != nil {
		return nil, formatError(path, lines.line, "parse header", err)
	}
	numin, numax := header[2], header[3]
	if header[4] < 2 || header[4] > spectral.MaxPoints || header[4] != math.Trunc(header[4]) {
		return nil, formatError(path, lines.line,
			fmt.Sprintf("invalid point count %g (want an integer in [2, %d])", header[4], spectral.MaxPoints), nil)
	}
	npts := int(header[4])
	if numax <= numin {
		return nil, formatError(path, lines.line, fmt.Sprintf("nu_max %g must exceed nu_min %g", numax, numin), nil)
	}

	// Grown by append; the declared count is only checked against what was read.
	var values []float64
	for lines.Next() {
		row, err := parseFloats(lines.fields)
		if err != nil {
			return nil, formatError(path, lines.line, "parse values", err)
		}
		values = append(values, row...)
	}
	if err := lines.Err(); err != nil {
		return nil, formatError(path, lines.line, "read values", err)
	}
	if len(values) != npts {
		return nil, formatError(path, 0, fmt.Sprintf("header declares %d points, found %d", npts, len(values)), nil)
	}

	step := (numax - numin) / float64(npts-1)
	wavenumbers := make([]float64, npts)
	for i := range wavenumbers {
		wavenumbers[i] = numin + float64(i)*step
	}
	wavenumbers[npts-1] = numax
	return []Record{{
		Pressure:      header[0],
		Temperature:   header[1],
		Wavenumbers:   wavenumbers,
		CrossSections: values,
		Source:        path,
	}}, nil
}

var namedPT = regexp.MustCompile(`(?i)_([0-9.eE+-]+)bar_([0-9.eE+-]+)K$`)

// ParseNamedPT extracts pressure and temperature from a FormatNamed file name.
func ParseNamedPT(name string) (float64, float64, error) {
	base := trimCompression(filepath.Base(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	m := namedPT.FindStringSubmatch(base)
	if m == nil {
		return 0, 0, formatError(name, 0, "file name does not match <prefix>_<P>bar_<T>K", nil)
	}
	p, err := parseFloat(m[1])
	if err != nil {
		return 0, 0, formatError(name, 0, "parse pressure from name", err)
	}
	t, err := parseFloat(m[2])
	if err != nil {
		return 0, 0, formatError(name, 0, "parse temperature from name", err)
	}
	return p, t, nil
}

type namedReader struct{}

func (namedReader) ReadRecords(path string) ([]Record, error) {
	p, t, err := ParseNamedPT(path)
	if err != nil {
		return nil, err
	}
	rc, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	rec := Record{Pressure: p, Temperature: t, Source: path}
	lines := newLineScanner(rc)
	for lines.Next() {
		if len(lines.fields) != 2 {
			return nil, formatError(path, lines.line, fmt.Sprintf("expected 2 columns, got %d", len(lines.fields)), nil)
		}
		pair, err := parseFloats(lines.fields)
		if err != nil {
			return nil, formatError(path, lines.line, "parse sample", err)
		}
		rec.Wavenumbers = append(rec.Wavenumbers, pair[0])
		rec.CrossSections = append(rec.CrossSections, pair[1])
	}
	if err := lines.Err(); err != nil {
		return nil, formatError(path, lines.line, "read samples", err)
	}
	if len(rec.Wavenumbers) == 0 {
		return nil, formatError(path, 0, "no samples", nil)
	}
	return []Record{rec}, nil
}

type consolidatedReader struct{}

var consolidatedColumns = []string{"pressure", "temperature", "wavenumber", "cross_section"}

func (consolidatedReader) ReadRecords(path string) ([]Record, error) {
	rc, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	table, err := readCSV(path, rc, consolidatedColumns)
	if err != nil {
		return nil, err
	}

	type ptKey struct{ p, t float64 }
	index := make(map[ptKey]int)
	var records []Record
	for _, row := range table.rows {
		key := ptKey{row[0], row[1]}
		idx, ok := index[key]
		if !ok {
			idx = len(records)
			index[key] = idx
			records = append(records, Record{Pressure: row[0], Temperature: row[1], Source: path})
		}
		records[idx].Wavenumbers = append(records[idx].Wavenumbers, row[2])
		records[idx].CrossSections = append(records[idx].CrossSections, row[3])
	}
	if len(records) == 0 {
		return nil, formatError(path, 0, "no rows", nil)
	}
	return records, nil
}

// csvTable holds numeric rows projected onto the requested columns.
type csvTable struct {
	header []string
	rows   [][]float64
}

// readCSV reads a headed CSV file. Required columns come first in each row,
// in the order given; when extra is true every remaining column follows in
// file order and its name is kept in header.
func readCSV(path string, r io.Reader, required []string) (*csvTable, error) {
	return readCSVColumns(path, r, required, false)
}

func readCSVColumns(path string, r io.Reader, required []string, extra bool) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, formatError(path, 0, "empty file", nil)
	}
	if err != nil {
		return nil, formatError(path, 1, "read header", err)
	}

	positions := make(map[string]int, len(head))
	for i, name := range head {
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}
	order := make([]int, 0, len(head))
	names := make([]string, 0, len(head))
	used := make(map[int]bool)
	for _, name := range required {
		pos, ok := positions[name]
		if !ok {
			return nil, formatError(path, 1, fmt.Sprintf("missing column %q", name), nil)
		}
		order = append(order, pos)
		names = append(names, name)
		used[pos] = true
	}
	if extra {
		for i, name := range head {
			if used[i] {
				continue
			}
			order = append(order, i)
			names = append(names, strings.TrimSpace(name))
		}
	}

	table := &csvTable{header: names}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, formatError(path, line, "read row", err)
		}
		row := make([]float64, len(order))
		for i, pos := range order {
			if pos >= len(record) {
				return nil, formatError(path, line, "short row", nil)
			}
			v, err := parseFloat(record[pos])
			if err != nil {
				return nil, formatError(path, line, fmt.Sprintf("column %q", names[i]), err)
			}
			row[i] = v
		}
		table.rows = append(table.rows, row)
	}
	return table, nil
}
