package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per failure class. Typed errors below unwrap to them
// so callers can branch with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrProvider         = errors.New("provider error")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidState     = errors.New("invalid state")

	// ErrNoSnapshot is returned by stores when the value log is empty
	ErrNoSnapshot = errors.New("no value snapshot")
)

// InvalidInputError reports bad arguments (caller's fault, never retried)
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ProviderError reports an upstream failure with the provider's status detail
type ProviderError struct {
	Provider   string
	StatusCode int
	Status     string
	Symbols    []string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "provider %s failed", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d %s)", e.StatusCode, e.Status)
	}
	if len(e.Symbols) > 0 {
		fmt.Fprintf(&b, " for %s", strings.Join(e.Symbols, ","))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProvider}
	}
	return []error{ErrProvider, e.Err}
}

// InsufficientDataError reports an empty candidate set after filtering
type InsufficientDataError struct {
	Requested int
	Dropped   []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: 0 of %d candidates have complete metrics (dropped: %s)",
		e.Requested, strings.Join(e.Dropped, ","))
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// InvalidStateError reports an operation invoked in the wrong lifecycle state
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s not allowed while portfolio is %s", e.Op, e.State)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
