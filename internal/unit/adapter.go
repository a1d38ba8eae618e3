package unit

import (
	"fmt"
	"log/slog"

	"github.com/raphi011/pinpoint/internal/engine"
	"github.com/raphi011/pinpoint/internal/metric"
	"github.com/raphi011/pinpoint/internal/model"
)

// adapter translates engine events of one test into result collector calls. It emits
// at most one Start and one Complete, later events are dropped.
type adapter struct {
	test model.Description
	rc   model.ResultCollector
	log  *slog.Logger

	started  bool
	finished bool
}

var _ engine.Listener = &adapter{}

func newAdapter(test model.Description, rc model.ResultCollector, log *slog.Logger) *adapter {
	return &adapter{test: test, rc: rc, log: log}
}

func (a *adapter) OnEvent(ev engine.Event) {
	if ev.Test != a.test {
		a.log.Warn("dropping event of unbound test", "event", ev.Kind, "event-test", ev.Test.String())
		return
	}

	if a.finished {
		a.log.Debug("dropping event after test finished", "event", ev.Kind)
		return
	}

	var outcome model.Outcome

	switch ev.Kind {
	case engine.EventStart:
		a.start()
		return
	case engine.EventSuccess:
		outcome = model.Passed()
	case engine.EventFailure:
		outcome = model.Failed(ev.Message)
	case engine.EventError:
		outcome = model.Errored(ev.Cause)
	case engine.EventSkipped:
		outcome = model.Skipped(ev.Message)
	default:
		outcome = model.Errored(fmt.Errorf("unknown engine event %q", ev.Kind))
	}

	a.complete(outcome.WithLogs(ev.Logs))
}

// reported reports whether a terminal outcome was delivered.
func (a *adapter) reported() bool {
	return a.finished
}

func (a *adapter) start() {
	if a.started {
		a.log.Debug("dropping duplicate start event")
		return
	}

	a.started = true
	a.rc.Start(a.test)
}

func (a *adapter) complete(o model.Outcome) {
	// a collector always sees Start before Complete
	a.start()

	a.finished = true
	a.rc.Complete(a.test, o)

	metric.OutcomesTotal.WithLabelValues(string(o.Status)).Inc()
}
