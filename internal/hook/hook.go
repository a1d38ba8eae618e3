// Package hook fans the results of test executions out to external systems.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raphi011/pinpoint/internal/model"
)

type Hook interface {
	Name() string
	Init() error
}

// TestFinishedListener is notified synchronously when a test finished.
type TestFinishedListener interface {
	Hook
	TestFinished(d model.Description, o model.Outcome)
}

// AsyncTestFinishedListener is notified on its own goroutine when a test finished.
type AsyncTestFinishedListener interface {
	Hook
	TestFinishedAsync(d model.Description, o model.Outcome)
}

// Manager dispatches finished tests to the registered hooks. It is a
// model.ResultCollector and can be shared by concurrent executions.
type Manager struct {
	all               []Hook
	testFinished      []TestFinishedListener
	testFinishedAsync []AsyncTestFinishedListener

	asyncHooksRunning sync.WaitGroup

	log *slog.Logger
}

var _ model.ResultCollector = &Manager{}

func NewManager(log *slog.Logger, hooks ...Hook) *Manager {
	return &Manager{
		all: hooks,
		log: log,
	}
}

// Init initializes every hook and sorts them by the listeners they implement.
func (m *Manager) Init() error {
	for _, h := range m.all {
		if err := h.Init(); err != nil {
			return fmt.Errorf("initiating hook %q: %w", h.Name(), err)
		}

		registeredHook := false

		if l, ok := h.(TestFinishedListener); ok {
			m.testFinished = append(m.testFinished, l)
			registeredHook = true
		}
		if l, ok := h.(AsyncTestFinishedListener); ok {
			m.testFinishedAsync = append(m.testFinishedAsync, l)
			registeredHook = true
		}

		if !registeredHook {
			return fmt.Errorf("hook %q does not implement any listener", h.Name())
		}
	}

	return nil
}

// Shutdown waits until all running async hooks have returned or ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		m.asyncHooksRunning.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Start(model.Description) {}

func (m *Manager) Complete(d model.Description, o model.Outcome) {
	for _, h := range m.testFinished {
		m.safely(h, func() { h.TestFinished(d, o) })
	}

	for _, h := range m.testFinishedAsync {
		m.asyncHooksRunning.Add(1)

		hook := h
		go func() {
			defer m.asyncHooksRunning.Done()
			m.safely(hook, func() { hook.TestFinishedAsync(d, o) })
		}()
	}
}

func (m *Manager) safely(h Hook, f func()) {
	defer func() {
		if err := recover(); err != nil {
			m.log.Error("hook panic'd", "hook", h.Name(), "error", err)
		}
	}()

	f()
}

type broadcast []model.ResultCollector

// Broadcast returns a collector that forwards every call to all collectors in order.
// Nil collectors are ignored.
func Broadcast(collectors ...model.ResultCollector) model.ResultCollector {
	b := make(broadcast, 0, len(collectors))

	for _, c := range collectors {
		if c != nil {
			b = append(b, c)
		}
	}

	return b
}

func (b broadcast) Start(d model.Description) {
	for _, c := range b {
		c.Start(d)
	}
}

func (b broadcast) Complete(d model.Description, o model.Outcome) {
	for _, c := range b {
		c.Complete(d, o)
	}
}
