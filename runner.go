package pinpoint

import (
	"context"

	"github.com/raphi011/pinpoint/internal/hook"
	"github.com/raphi011/pinpoint/internal/isolation"
	"github.com/raphi011/pinpoint/internal/model"
	"github.com/raphi011/pinpoint/internal/storage"
	"github.com/raphi011/pinpoint/internal/unit"
)

// execution is the result of running a single test method.
type execution struct {
	record  model.RunRecord
	outcome model.Outcome
}

// lookup resolves a test method to its loaded class and the isolation context
// that defines it.
func (s *Server) lookup(d model.Description) (*isolation.Class, *isolation.Loader, error) {
	l, ok := s.classLoaders[d.Class]
	if !ok {
		return nil, nil, model.NotFoundError{Kind: "class", Name: d.Class}
	}

	c, err := l.Load(d.Class)
	if err != nil {
		return nil, nil, err
	}

	if _, ok := c.Method(d.Method); !ok {
		return nil, nil, model.NotFoundError{Kind: "method", Name: d.String()}
	}

	return c, l, nil
}

// execute runs a test method synchronously. Every execution reports to its own
// collector chain: the run recorder, an in-memory cache and the hooks.
func (s *Server) execute(ctx context.Context, d model.Description, triggeredBy string) (execution, error) {
	if err := s.startUnit(); err != nil {
		return execution{}, err
	}
	defer s.runningUnits.Done()

	log := s.log.With("class", d.Class, "method", d.Method, "triggered-by", triggeredBy)

	c, l, err := s.lookup(d)
	if err != nil {
		return execution{}, err
	}

	u, err := unit.New(c, d.Method, unit.WithLogger(log))
	if err != nil {
		return execution{}, err
	}

	recorder := storage.NewRecorder(ctx, s.storage, triggeredBy, log)
	cache := storage.NewCache()

	if err := u.Execute(l, hook.Broadcast(recorder, cache, s.hooks)); err != nil {
		log.Warn("execution failed", "error", err)
		return execution{}, err
	}

	rec, err := recorder.Record(d)
	if err != nil {
		return execution{}, err
	}

	outcome, err := cache.Load(d)
	if err != nil {
		return execution{}, err
	}

	log.Info("test finished", "result", outcome.Status, "duration-ms", rec.DurationInMS)

	return execution{record: rec, outcome: outcome}, nil
}

// RunOnce executes a single test method and returns its outcome. A returned error
// means the method could not be executed, a failing test is reported through the
// outcome.
func (s *Server) RunOnce(ctx context.Context, d Description) (Outcome, error) {
	e, err := s.execute(ctx, d, "cli")
	if err != nil {
		return Outcome{}, err
	}

	return e.outcome, nil
}
