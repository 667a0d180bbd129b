package scene

import (
	"errors"
	"fmt"
)

// ConfigError reports a scene file or default document that could not be
// parsed, merged or validated.
type ConfigError struct {
	Scene string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Scene == "" {
		return fmt.Sprintf("scene config: %v", e.Err)
	}
	return fmt.Sprintf("scene config %s: %v", e.Scene, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
