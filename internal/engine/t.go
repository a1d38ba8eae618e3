package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/raphi011/pinpoint/internal/model"
)

// make sure we adhere to the TB interface
var _ model.TB = &T{}

// T is handed to every test function the engine runs. It is safe for concurrent use
// by goroutines started from the test, FailNow, Fatal and Skip must be called from
// the test goroutine.
type T struct {
	className string
	testName  string
	ctx       context.Context

	mu         sync.Mutex
	logs       strings.Builder
	failures   []string
	failed     bool
	skipped    bool
	skipReason string
	cleanups   []func()
}

func newT(className, testName string, ctx context.Context) *T {
	return &T{
		className: className,
		testName:  testName,
		ctx:       ctx,
	}
}

func (t *T) Cleanup(c func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanups = append(t.cleanups, c)
}

func (t *T) Error(args ...any) {
	t.fail(fmt.Sprint(args...))
}

func (t *T) Errorf(format string, args ...any) {
	t.fail(fmt.Sprintf(format, args...))
}

func (t *T) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failed = true
}

func (t *T) FailNow() {
	t.Fail()
	panic(failTestErr{})
}

func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failed
}

func (t *T) Fatal(args ...any) {
	t.Error(args...)
	panic(failTestErr{})
}

func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	panic(failTestErr{})
}

func (t *T) Helper() {}

func (t *T) Log(args ...any) {
	t.log(fmt.Sprint(args...))
}

func (t *T) Logf(format string, args ...any) {
	t.log(fmt.Sprintf(format, args...))
}

func (t *T) Name() string {
	return t.testName
}

// Setenv sets an environment variable for the duration of the test.
func (t *T) Setenv(key, value string) {
	prev, ok := os.LookupEnv(key)

	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s: %v", key, err)
	}

	t.Cleanup(func() {
		if ok {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func (t *T) Skip(args ...any) {
	t.skip(fmt.Sprint(args...))
}

func (t *T) SkipNow() {
	t.skip("")
}

func (t *T) Skipf(format string, args ...any) {
	t.skip(fmt.Sprintf(format, args...))
}

func (t *T) Skipped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.skipped
}

func (t *T) TempDir() string {
	dir, err := os.MkdirTemp("", "pinpoint-"+t.className+"-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}

	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})

	return dir
}

/* Engine specific functions that are not part of the testing.TB interface */
/* ----------------------------------------------------------------------- */

func (t *T) Context() context.Context {
	return t.ctx
}

func (t *T) fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failed = true
	t.failures = append(t.failures, msg)
	t.logs.WriteString(msg + "\n")
}

func (t *T) skip(reason string) {
	t.mu.Lock()
	t.skipped = true
	t.skipReason = reason
	if reason != "" {
		t.logs.WriteString(reason + "\n")
	}
	t.mu.Unlock()

	panic(skipTestErr{})
}

func (t *T) log(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logs.WriteString(msg + "\n")
}

// runCleanup runs the registered cleanup functions in reverse order.
func (t *T) runCleanup(log *slog.Logger) {
	t.mu.Lock()
	cleanups := t.cleanups
	t.cleanups = nil
	t.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if err := recover(); err != nil {
					log.Warn("cleanup func panic'd", "error", err, "class", t.className, "test", t.testName)
				}
			}()

			cleanups[i]()
		}()
	}
}

// terminalEvent turns the state of t and the value recovered from the test
// function into the event that ends the test.
func (t *T) terminalEvent(d model.Description, inv invocation) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	ev := Event{Test: d, Logs: t.logs.String()}

	unexpectedPanic := false
	if inv.recovered != nil {
		switch inv.recovered.(type) {
		case failTestErr, skipTestErr:
		default:
			unexpectedPanic = true
		}
	}

	switch {
	case unexpectedPanic:
		// this is an unexpected panic (does not originate from T)
		ev.Kind = EventError
		ev.Cause = &PanicError{Value: inv.recovered, Stack: inv.stack}
	case t.failed:
		ev.Kind = EventFailure
		ev.Message = strings.Join(t.failures, "\n")
	case t.skipped:
		ev.Kind = EventSkipped
		ev.Message = t.skipReason
	default:
		ev.Kind = EventSuccess
	}

	return ev
}
