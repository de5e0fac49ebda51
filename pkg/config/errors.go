package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingKey is matched by every *MissingKeyError.
var ErrMissingKey = errors.New("configuration key not found")

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("cyclic template")

// MissingKeyError reports a path that is absent from the configuration.
type MissingKeyError struct {
	Path string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("key '%s' not found", e.Path)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKey
}

// CycleError reports a template that refers back to a path already being
// resolved. Chain lists the paths in resolution order, ending with the
// revisited one.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic template: %s", strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}
