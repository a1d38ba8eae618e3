package model

import "fmt"

type NotFoundError struct {
	Kind string
	Name string
}

func (e NotFoundError) Error() string {
	if e.Kind == "" {
		return "not found"
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

type DuplicateError struct {
	Kind string
	Name string
}

func (e DuplicateError) Error() string {
	if e.Kind == "" {
		return "duplicate entry"
	}
	return fmt.Sprintf("duplicate %s %q", e.Kind, e.Name)
}
