package backend

import (
	"errors"
	"fmt"
)

// InitError reports that a library, device or generator could not be
// constructed. It is fatal for the whole run.
type InitError struct {
	Library string
	Device  string
	Stage   string // "library", "device", "generator" or "features"
	Err     error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("backend init failed at %s (library=%s, device=%s): %v", e.Stage, e.Library, e.Device, e.Err)
	}
	return fmt.Sprintf("backend init failed at %s (library=%s): %v", e.Stage, e.Library, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// IsInitError returns true if err wraps an InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}
