package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for config files that are neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalidConfig is wrapped by every ValidationError.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseError reports a file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing config %s: %v", e.Path, e.Err)
}

// Unwrap returns the decoder error.
func (e *ParseError) Unwrap() error { return e.Err }

// FieldError is one failed check.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every failed check.
type ValidationError struct {
	Fields []FieldError
}

// Error implements error.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%v: %s", ErrInvalidConfig, strings.Join(parts, "; "))
}

// Unwrap makes errors.Is(err, ErrInvalidConfig) hold.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
