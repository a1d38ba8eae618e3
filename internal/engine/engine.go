// Package engine is a listener driven test engine. It takes a declarative suite
// definition, resolves the selected classes through an isolation context and reports
// every test it runs as a sequence of events to the registered listeners.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/raphi011/pinpoint/internal/isolation"
	"github.com/raphi011/pinpoint/internal/model"
)

// Engine runs suites. An engine is configured once and may be used for multiple
// runs, but runs must not overlap.
type Engine struct {
	loader    *isolation.Loader
	listeners []Listener
	config    Config
	log       *slog.Logger
}

// plannedClass is a class of a suite with its resolved method selection.
type plannedClass struct {
	class   *isolation.Class
	methods []string
}

// invocation is the result of calling a test function.
type invocation struct {
	recovered any
	stack     []byte
	// exited is true if the test goroutine stopped without returning or panicking,
	// e.g. through runtime.Goexit.
	exited bool
}

// New validates the config and returns a ready to use engine.
func New(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config = config.withDefaults()

	e := &Engine{
		loader: config.Loader,
		config: config,
		log:    config.Logger.With("component", "engine", "loader", config.Loader.Name()),
	}

	e.listeners = append(e.listeners, config.Listeners...)

	if config.DefaultListeners {
		e.listeners = append(e.listeners, logListener{log: e.log}, metricsListener{})
	}

	return e, nil
}

// Run executes the given suites and blocks until every selected test has finished.
// All classes and methods are resolved before the first test starts, a resolution
// error aborts the run without emitting any events.
//
// Test outcomes are reported to the listeners only, Run returns nil as long as the
// suites could be executed.
func (e *Engine) Run(suites ...SuiteSpec) error {
	if len(suites) == 0 {
		return ErrNoSuites
	}

	plan, err := e.plan(suites)
	if err != nil {
		return err
	}

	for _, pc := range plan {
		e.runClass(pc)
	}

	return nil
}

func (e *Engine) plan(suites []SuiteSpec) ([]plannedClass, error) {
	var plan []plannedClass

	for _, suite := range suites {
		for _, test := range suite.Tests {
			for _, cs := range test.Classes {
				c, err := e.loader.Load(cs.Name)
				if err != nil {
					var notFound model.NotFoundError
					if errors.As(err, &notFound) {
						return nil, fmt.Errorf("%w: %s", ErrClassNotFound, cs.Name)
					}

					return nil, fmt.Errorf("loading class %s: %w", cs.Name, err)
				}

				methods, err := selectMethods(c, cs.Includes)
				if err != nil {
					return nil, err
				}

				plan = append(plan, plannedClass{class: c, methods: methods})
			}
		}
	}

	return plan, nil
}

func selectMethods(c *isolation.Class, includes []Include) ([]string, error) {
	if len(includes) == 0 {
		return c.Methods(), nil
	}

	methods := make([]string, 0, len(includes))

	for _, inc := range includes {
		if _, ok := c.Method(inc.Method); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, c.Name(), inc.Method)
		}

		methods = append(methods, inc.Method)
	}

	return methods, nil
}

func (e *Engine) runClass(pc plannedClass) {
	def := pc.class.Definition()
	log := e.log.With("class", def.Name)

	if err := def.SafeSetup(); err != nil {
		log.Warn("setup of class failed", "error", err)

		for _, m := range pc.methods {
			d := model.Description{Class: def.Name, Method: m}

			e.notify(Event{Kind: EventStart, Test: d})
			e.notify(Event{
				Kind:    EventSkipped,
				Test:    d,
				Message: fmt.Sprintf("class setup failed: %v", err),
			})
		}

		return
	}

	for _, m := range pc.methods {
		fn, _ := pc.class.Method(m)

		e.runTest(model.Description{Class: def.Name, Method: m}, fn)
	}

	if err := def.SafeTeardown(); err != nil {
		log.Warn("teardown of class failed", "error", err)
	}
}

// runTest runs an individual test method and emits its start and terminal event.
// If the test never returns normally nor panics, no terminal event is emitted.
func (e *Engine) runTest(d model.Description, fn model.TestFunc) {
	t := newT(d.Class, d.Method, e.config.Context)

	e.notify(Event{Kind: EventStart, Test: d})

	start := time.Now()

	inv := invoke(t, fn)

	t.runCleanup(e.log)

	if inv.exited {
		e.log.Warn("test exited without reporting a result", "class", d.Class, "test", d.Method)
		return
	}

	ev := t.terminalEvent(d, inv)
	ev.Duration = time.Since(start)

	e.notify(ev)
}

// invoke calls fn on its own goroutine and waits for it to finish.
func invoke(t *T, fn model.TestFunc) invocation {
	done := make(chan invocation, 1)

	go func() {
		inv := invocation{exited: true}

		defer func() {
			if r := recover(); r != nil {
				inv.recovered = r
				inv.stack = debug.Stack()
				inv.exited = false
			}

			done <- inv
		}()

		fn(t)

		inv.exited = false
	}()

	return <-done
}

func (e *Engine) notify(ev Event) {
	for _, l := range e.listeners {
		l.OnEvent(ev)
	}
}
