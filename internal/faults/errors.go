package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRange   = errors.New("invalid range")
	ErrMissingData    = errors.New("missing data")
	ErrFormat         = errors.New("format error")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotFound       = errors.New("not found")
	ErrIntegrity      = errors.New("integrity failure")
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker. The marker should be one of the exported
// sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIntegrity
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the first marker found in err's chain.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrMissingData):
		return "missing_data"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrDuplicateEntry):
		return "duplicate_entry"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "opacity failure"
	}
	return strings.Join(parts, ": ")
}
