package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates an invalid or incomplete engine configuration.
	ErrConfiguration = errors.New("engine configuration error")

	ErrNoSuites       = errors.New("no suites to run")
	ErrClassNotFound  = errors.New("class not found")
	ErrMethodNotFound = errors.New("method not found")
)

// PanicError wraps a value a test panicked with that did not originate from T.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// skipTestErr is passed to panic() to signal
// that a test was skipped.
type skipTestErr struct{}

// failTestErr is passed to panic() to signal
// that a test has failed.
type failTestErr struct{}
