package stage

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("stage configuration error")
	// ErrProcessingFault wraps a panic recovered from a callable.
	ErrProcessingFault = errors.New("stage processing fault")
)

// ConfigurationError reports an invalid argument to New. The stage is not
// started when it is returned.
type ConfigurationError struct {
	Stage  string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stage %q: invalid %s: %s", e.Stage, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErr(stage, field, format string, args ...any) error {
	return &ConfigurationError{Stage: stage, Field: field, Reason: fmt.Sprintf(format, args...)}
}
