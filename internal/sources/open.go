package sources

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const maxLineBytes = 4 * 1024 * 1024

type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openSource opens path, transparently decompressing .zst and .gz files.
func openSource(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &multiCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			file.Close,
		}}, nil
	case ".gz":
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &multiCloser{Reader: gz, closers: []func() error{gz.Close, file.Close}}, nil
	default:
		return file, nil
	}
}

// trimCompression strips a compression suffix so format-specific extension
// checks see the underlying name.
func trimCompression(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".zst", ".zstd", ".gz"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// lineScanner yields non-blank, non-comment lines split into fields.
type lineScanner struct {
	scanner *bufio.Scanner
	line    int
	fields  []string
}

func newLineScanner(r io.Reader) *lineScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineScanner{scanner: s}
}

func (l *lineScanner) Next() bool {
	for l.scanner.Scan() {
		l.line++
		text := strings.TrimSpace(l.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "!") {
			continue
		}
		l.fields = strings.FieldsFunc(text, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		if len(l.fields) == 0 {
			continue
		}
		return true
	}
	return false
}

func (l *lineScanner) Err() error { return l.scanner.Err() }

// parseFloat accepts Fortran-style D exponents found in older tables.
func parseFloat(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if strings.ContainsAny(field, "dD") {
		field = strings.NewReplacer("d", "e", "D", "E").Replace(field)
	}
	return strconv.ParseFloat(field, 64)
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := parseFloat(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
