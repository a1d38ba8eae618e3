package engine

import (
	"time"

	"github.com/raphi011/pinpoint/internal/model"
)

type EventKind string

const (
	EventStart   EventKind = "start"
	EventSuccess EventKind = "success"
	// EventFailure is an assertion failure, Event.Message holds the failure messages.
	EventFailure EventKind = "failure"
	// EventError is an unexpected panic, Event.Cause holds a *PanicError.
	EventError   EventKind = "error"
	EventSkipped EventKind = "skipped"
)

// Terminal reports whether the event ends a test.
func (k EventKind) Terminal() bool {
	return k != EventStart
}

// Event is a lifecycle callback of a single test method.
type Event struct {
	Kind EventKind
	Test model.Description
	// Message is the failure message of EventFailure or the reason of EventSkipped.
	Message string
	// Cause is set for EventError.
	Cause error
	// Logs contains log messages written by the test.
	Logs     string
	Duration time.Duration
}

// Listener receives the lifecycle events of every test the engine runs. Events are
// delivered synchronously on the goroutine that called Engine.Run.
type Listener interface {
	OnEvent(ev Event)
}
