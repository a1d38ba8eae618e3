package isolation

import "fmt"

// InitError is returned by Loader.Load when the static initializer of a class panicked.
// The error is cached, later loads of the same class in the same loader return it again.
type InitError struct {
	Class  string
	Loader string
	Value  any
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing class %q in loader %q: %v", e.Class, e.Loader, e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *InitError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
