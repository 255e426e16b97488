package models

import (
	"fmt"
)

// ConfigurationError is returned when a configuration value is
// rejected. These are raised when the value is set or the config
// is loaded, never while a package is being processed.
type ConfigurationError struct {
	Field   string
	Message string
}

func NewConfigurationError(field, format string, a ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: fmt.Sprintf(format, a...),
	}
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("Invalid configuration for %s: %s", err.Field, err.Message)
}
