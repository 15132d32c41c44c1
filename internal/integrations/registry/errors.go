package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLookup is returned when a single named integration is not installed.
var ErrUnsupportedLookup = errors.New("unsupported integration")

// UnsupportedLookupError carries the discovered integration names for diagnostics.
type UnsupportedLookupError struct {
	Name      string
	Available []string
}

func (e *UnsupportedLookupError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("integration %q is not supported: no integrations are installed", e.Name)
	}
	return fmt.Sprintf("integration %q is not supported (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnsupportedLookupError) Unwrap() error {
	return ErrUnsupportedLookup
}
