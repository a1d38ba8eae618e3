package engine

import (
	"log/slog"

	"github.com/raphi011/pinpoint/internal/metric"
)

// logListener is a default listener that logs every terminal event.
type logListener struct {
	log *slog.Logger
}

func (l logListener) OnEvent(ev Event) {
	if !ev.Kind.Terminal() {
		l.log.Debug("test started", "class", ev.Test.Class, "test", ev.Test.Method)
		return
	}

	log := l.log.With("class", ev.Test.Class, "test", ev.Test.Method, "result", ev.Kind, "duration", ev.Duration)

	switch ev.Kind {
	case EventError:
		log.Warn("test errored", "error", ev.Cause)
	case EventFailure:
		log.Info("test failed", "message", ev.Message)
	default:
		log.Info("test finished")
	}
}

// metricsListener is a default listener that counts terminal events.
type metricsListener struct{}

func (metricsListener) OnEvent(ev Event) {
	if !ev.Kind.Terminal() {
		return
	}

	metric.EngineTestsTotal.WithLabelValues(ev.Test.Class, string(ev.Kind)).Inc()
}
