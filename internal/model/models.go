// The `model`s package holds the types shared by the engine, the execution core and the
// result collectors. It exists to avoid cyclic dependencies; types required by a library
// user such as `TestFunc` are reexported by the pinpoint package.
package model

import (
	"fmt"
)

// Description identifies a single test method of a test class. It is the correlation
// key between the engine, the listener adapter and every result collector.
type Description struct {
	// Class is the fully qualified name of the test class.
	Class string `json:"class"`
	// Method is the name of the test method inside Class.
	Method string `json:"method"`
}

func (d Description) String() string {
	return d.Class + "." + d.Method
}

type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Outcome is the terminal result of one test method. Failed outcomes carry the
// assertion message, errored outcomes the cause.
type Outcome struct {
	Status Status `json:"status"`
	// Message is the assertion failure (or skip reason) reported by the test.
	Message string `json:"message,omitempty"`
	// Cause is set for StatusError only.
	Cause error `json:"-"`
	// Logs contains log messages written by the test itself.
	Logs string `json:"logs,omitempty"`
}

func Passed() Outcome {
	return Outcome{Status: StatusPassed}
}

func Failed(message string) Outcome {
	return Outcome{Status: StatusFailed, Message: message}
}

func Errored(cause error) Outcome {
	o := Outcome{Status: StatusError, Cause: cause}
	if cause != nil {
		o.Message = cause.Error()
	}
	return o
}

func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Message: reason}
}

// WithLogs returns a copy of o that carries the given test logs.
func (o Outcome) WithLogs(logs string) Outcome {
	o.Logs = logs
	return o
}

func (o Outcome) String() string {
	if o.Message == "" {
		return string(o.Status)
	}
	return fmt.Sprintf("%s: %s", o.Status, o.Message)
}

// ResultCollector receives the results of a test execution. For a given Description
// it gets at most one Start followed by exactly one Complete.
//
// The caller of an execution owns the collector, the execution only invokes it.
type ResultCollector interface {
	Start(d Description)
	Complete(d Description, o Outcome)
}

type TestFunc func(t TB)

// TestClass is the static definition of a test class: a named collection of test
// methods plus optional lifecycle functions. Definitions are turned into loaded
// classes by an isolation.Loader.
type TestClass struct {
	// Name is the fully qualified class name used to look the class up.
	Name string `json:"name"`
	// Init is the static initializer of the class. It runs once per isolation
	// context, the first time the class is loaded there.
	Init func() `json:"-"`
	// Setup runs before the selected methods of the class.
	Setup func() error `json:"-"`
	// Teardown runs after the selected methods of the class.
	Teardown func() error `json:"-"`
	// Methods maps method names to test functions.
	Methods map[string]TestFunc `json:"-"`
}

func (c TestClass) SafeTeardown() (err error) {
	if c.Teardown == nil {
		return nil
	}

	defer func() {
		r := recover()

		if r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	err = c.Teardown()
	return
}

func (c TestClass) SafeSetup() (err error) {
	if c.Setup == nil {
		return nil
	}

	defer func() {
		r := recover()

		if r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	err = c.Setup()
	return
}

// TB is a carbon copy of the stdlib testing.TB interface. Unfortunately we cannot reuse
// the original testing.TB interface because it deliberately includes the `private()` function
// to prevent others from implementing it to allow them to add new functions over time without
// breaking anything.
type TB interface {
	Cleanup(func())
	Error(args ...any)
	Errorf(format string, args ...any)
	Fail()
	FailNow()
	Failed() bool
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Helper()
	Log(args ...any)
	Logf(format string, args ...any)
	Name() string
	Setenv(key, value string)
	Skip(args ...any)
	SkipNow()
	Skipf(format string, args ...any)
	Skipped() bool
	TempDir() string
}
