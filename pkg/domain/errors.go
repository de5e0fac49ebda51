package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/config"
)

// ErrEvaluation is matched by every evaluation-class error.
var ErrEvaluation = errors.New("evaluation failed")

// ErrValidation is matched by every error returned from Validate.
var ErrValidation = errors.New("validation failed")

// ErrInvalidated is returned by a cache store when an entry has been
// invalidated. The caching layer retries on it; it never reaches callers
// directly.
var ErrInvalidated = errors.New("cache entry invalidated")

// ErrCacheMiss is returned by a cache store's Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// EvaluationError is a generic evaluation failure originating in Source.
type EvaluationError struct {
	Msg    string
	Source string
	Err    error
}

func (e *EvaluationError) Error() string {
	msg := e.Msg
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *EvaluationError) Unwrap() error { return e.Err }

func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }

// KeyNotFoundError reports a required configuration path that is absent and
// has no default.
type KeyNotFoundError struct {
	Key    string
	Source string
}

func (e *KeyNotFoundError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("key '%s' not found", e.Key)
	}
	return fmt.Sprintf("%s: key '%s' not found", e.Source, e.Key)
}

// Is matches ErrEvaluation and config.ErrMissingKey.
func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrEvaluation || target == config.ErrMissingKey
}

// CyclicTemplateError reports a template that refers back to itself.
type CyclicTemplateError struct {
	Chain  []string
	Source string
}

func (e *CyclicTemplateError) Error() string {
	msg := fmt.Sprintf("cyclic template: %s", strings.Join(e.Chain, " -> "))
	if e.Source == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Source, msg)
}

func (e *CyclicTemplateError) Is(target error) bool {
	return target == ErrEvaluation || target == config.ErrCycle
}

// DispatchError reports a selector value with no entry in a dispatch table
// and no default. Err holds the selector's own failure, if that is why no
// entry matched.
type DispatchError struct {
	Value  any
	Valid  []any
	Source string
	Err    error
}

func (e *DispatchError) Error() string {
	valid := make([]string, len(e.Valid))
	for i, v := range e.Valid {
		valid[i] = fmt.Sprint(v)
	}
	sort.Strings(valid)

	value := fmt.Sprint(e.Value)
	if e.Err != nil && e.Value == nil {
		value = "{NONE}"
	}
	msg := fmt.Sprintf("evaluated to %s, but must be one of %s", value, strings.Join(valid, ", "))
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool { return target == ErrEvaluation }

// InsufficientInformationError reports that an introspection cannot determine
// a node's dependencies without evaluating something upstream first.
type InsufficientInformationError struct {
	Reason string
	Source string
}

func (e *InsufficientInformationError) Error() string {
	return fmt.Sprintf("insufficient information to evaluate %s: %s", e.Source, e.Reason)
}

func (e *InsufficientInformationError) Is(target error) bool { return target == ErrEvaluation }

// DomainError reports a resolved option value outside its allowed domain.
type DomainError struct {
	Key    string
	Value  any
	Source string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: value %v for key '%s' is not in the allowed domain", e.Source, e.Value, e.Key)
}

func (e *DomainError) Is(target error) bool { return target == ErrEvaluation }

// CacheExhaustedError is returned once a cached node has seen its entry
// invalidated on every allowed attempt. Err is the last invalidation cause.
type CacheExhaustedError struct {
	Attempts int
	Source   string
	Err      error
}

func (e *CacheExhaustedError) Error() string {
	return fmt.Sprintf("%s: cache entry invalidated on all %d attempts: %v", e.Source, e.Attempts, e.Err)
}

func (e *CacheExhaustedError) Unwrap() error { return e.Err }

func (e *CacheExhaustedError) Is(target error) bool { return target == ErrEvaluation }

// ValidationError is the Validate counterpart of an evaluation-class error.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid converts an evaluation-class error into a validation error. Nil,
// errors that already are validation errors, and errors of any other class
// (I/O, cancellation, unhandled requests) are returned unchanged.
func Invalid(err error) error {
	if err == nil || errors.Is(err, ErrValidation) || !errors.Is(err, ErrEvaluation) {
		return err
	}
	return &ValidationError{Err: err}
}

// FromConfig translates a pkg/config failure into the matching domain error,
// attributed to source.
func FromConfig(err error, source string) error {
	if err == nil {
		return nil
	}
	var missing *config.MissingKeyError
	if errors.As(err, &missing) {
		return &KeyNotFoundError{Key: missing.Path, Source: source}
	}
	var cycle *config.CycleError
	if errors.As(err, &cycle) {
		return &CyclicTemplateError{Chain: cycle.Chain, Source: source}
	}
	if errors.Is(err, ErrEvaluation) {
		return err
	}
	return &EvaluationError{Msg: "configuration error", Source: source, Err: err}
}

// IsMissingKey reports whether err was caused by an absent configuration
// path.
func IsMissingKey(err error) bool {
	return errors.Is(err, config.ErrMissingKey)
}
