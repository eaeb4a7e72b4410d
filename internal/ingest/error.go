package ingest

import (
	"fmt"

	"github.com/pkg/errors"
)

// InternalError reports a failure of the pipeline itself.
type InternalError struct {
	Cause error
}

func (m *InternalError) Error() string {
	return fmt.Sprintf("ingest error: %v", m.Cause)
}

func (m *InternalError) Unwrap() error {
	return m.Cause
}

func NewInternalError(format string, args ...any) error {
	return &InternalError{Cause: errors.Errorf(format, args...)}
}

// ConfigurationError reports a required setting that is missing.
type ConfigurationError struct {
	Setting string
}

func (m *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not configured", m.Setting)
}
