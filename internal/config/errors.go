package config

import (
	"errors"
	"fmt"
)

// Error definitions for the config package
var (
	// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	// ErrConfigTooLarge is returned when the config file exceeds maxConfigSize
	ErrConfigTooLarge = errors.New("config file too large")
	// ErrInvalidValue is the base error for rejected field values
	ErrInvalidValue = errors.New("invalid config value")
)

// ErrInvalidFieldDetail describes a rejected field value.
type ErrInvalidFieldDetail struct {
	Section string
	Field   string
	Value   any
	Reason  string
}

func (e *ErrInvalidFieldDetail) Error() string {
	return fmt.Sprintf("invalid value for %s.%s: '%v' (%s)", e.Section, e.Field, e.Value, e.Reason)
}

func (e *ErrInvalidFieldDetail) Unwrap() error {
	return ErrInvalidValue
}
