// Package unit executes a single test method of a test class on the engine and
// reports its outcome to a result collector. An execution is refused when the test
// class was not loaded by the isolation context handed to it.
package unit

import (
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/raphi011/pinpoint/internal/engine"
	"github.com/raphi011/pinpoint/internal/isolation"
	"github.com/raphi011/pinpoint/internal/metric"
	"github.com/raphi011/pinpoint/internal/model"
)

// State is the state an execution ended in.
type State string

const (
	StateNotStarted  State = "not_started"
	StateGuardFailed State = "guard_failed"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	// StateFaulted is reached when the engine could not be started or failed to run.
	StateFaulted State = "faulted"
)

// Runner runs suite definitions, *engine.Engine is the default implementation.
type Runner interface {
	Run(suites ...engine.SuiteSpec) error
}

// EngineFactory creates the runner of a single execution.
type EngineFactory func(config engine.Config) (Runner, error)

func defaultEngine(config engine.Config) (Runner, error) {
	return engine.New(config)
}

// TestUnit is one test method of a loaded test class. A unit holds no state across
// executions, distinct units may be executed concurrently.
type TestUnit struct {
	class     *isolation.Class
	test      model.Description
	detection isolation.DetectionStrategy
	newEngine EngineFactory
	log       *slog.Logger
}

type Option func(u *TestUnit)

// WithDetection replaces the default isolation check.
func WithDetection(d isolation.DetectionStrategy) Option {
	return func(u *TestUnit) {
		u.detection = d
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(u *TestUnit) {
		u.log = log
	}
}

func WithEngine(f EngineFactory) Option {
	return func(u *TestUnit) {
		u.newEngine = f
	}
}

// New binds a unit to the method of a loaded class.
func New(class *isolation.Class, method string, opts ...Option) (*TestUnit, error) {
	if class == nil {
		return nil, errors.New("creating test unit: class must not be nil")
	}

	if method == "" {
		return nil, errors.New("creating test unit: method must not be empty")
	}

	u := &TestUnit{
		class:     class,
		test:      model.Description{Class: class.Name(), Method: method},
		detection: isolation.DefaultDetection(),
		newEngine: defaultEngine,
		log:       slog.Default(),
	}

	for _, o := range opts {
		o(u)
	}

	return u, nil
}

// Description returns the identity of the unit.
func (u *TestUnit) Description() model.Description {
	return u.test
}

// Execute runs the bound test method synchronously with loader as the current
// isolation context and reports the outcome to rc.
//
// Test outcomes are only ever reported to rc. A returned error is always a
// *ConfigurationFault, in that case rc has not been notified unless the engine
// failed after the test had started. Panics of the engine or of rc are returned as
// a fault wrapping *engine.PanicError. If the test class was loaded by a different
// isolation context, Execute returns a fault with StaticInitializationUnsupported as
// its message before anything is run.
//
// If the engine returns without reporting a terminal event for the test, rc
// receives an error outcome wrapping ErrNoTerminalEvent.
func (u *TestUnit) Execute(loader *isolation.Loader, rc model.ResultCollector) error {
	log := u.log.With("class", u.test.Class, "method", u.test.Method, "loader", loader.String())

	metric.UnitsRunning.Inc()
	defer metric.UnitsRunning.Dec()

	state := StateNotStarted
	defer func() {
		metric.UnitsExecuted.WithLabelValues(string(state)).Inc()
	}()

	if u.detection.FromDifferentLoader(u.class, loader) {
		state = StateGuardFailed
		log.Warn("test class was loaded by a different isolation context", "defined-by", u.class.Loader().String())

		return &ConfigurationFault{
			Test:    u.test,
			Message: StaticInitializationUnsupported,
			Err:     ErrIsolationViolation,
		}
	}

	if rc == nil {
		state = StateFaulted
		return &ConfigurationFault{Test: u.test, Message: "missing result collector"}
	}

	suite := BuildSuite(u.test.Class, u.test.Method)

	listener := newAdapter(u.test, rc, log)

	e, err := u.newEngine(engine.Config{
		Loader:           loader,
		DefaultListeners: false,
		Listeners:        []engine.Listener{listener},
		Logger:           log,
	})
	if err != nil {
		state = StateFaulted
		return &ConfigurationFault{Test: u.test, Message: "starting engine", Err: err}
	}

	state = StateRunning
	log.Debug("running test")

	if err := run(e, suite, listener, log); err != nil {
		state = StateFaulted
		log.Warn("engine failed", "error", err)

		return &ConfigurationFault{Test: u.test, Message: "running engine", Err: err}
	}

	state = StateCompleted

	return nil
}

// run runs the suite and completes the test if the engine did not. A panic of the
// engine or of the collector is returned as a *engine.PanicError.
func run(e Runner, suite engine.SuiteSpec, listener *adapter, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &engine.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	if err := e.Run(suite); err != nil {
		return err
	}

	if !listener.reported() {
		log.Warn("engine returned without reporting a result")
		listener.complete(model.Errored(ErrNoTerminalEvent))
	}

	return nil
}
