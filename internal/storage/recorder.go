package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphi011/pinpoint/internal/model"
)

// Recorder is a result collector that persists every test it is notified about as a
// run record. Storage errors are logged, the collector protocol cannot return them.
type Recorder struct {
	ctx         context.Context
	storage     *Storage
	triggeredBy string
	log         *slog.Logger

	lock    sync.Mutex
	records map[model.Description]model.RunRecord
}

var _ model.ResultCollector = &Recorder{}

func NewRecorder(ctx context.Context, s *Storage, triggeredBy string, log *slog.Logger) *Recorder {
	return &Recorder{
		ctx:         ctx,
		storage:     s,
		triggeredBy: triggeredBy,
		log:         log,
		records:     map[model.Description]model.RunRecord{},
	}
}

func (r *Recorder) Start(d model.Description) {
	rec := model.RunRecord{
		ID:          uuid.NewString(),
		Test:        d,
		TriggeredBy: r.triggeredBy,
		Status:      model.StatusPending,
		Start:       time.Now(),
	}

	r.lock.Lock()
	r.records[d] = rec
	r.lock.Unlock()

	if err := r.storage.SaveResult(r.ctx, rec); err != nil {
		r.log.Error("saving run record failed", "error", err, "test", d.String())
	}
}

func (r *Recorder) Complete(d model.Description, o model.Outcome) {
	r.lock.Lock()
	rec, ok := r.records[d]
	if !ok {
		r.lock.Unlock()
		r.log.Warn("completed test was never started", "test", d.String())
		return
	}

	rec = rec.Complete(o, time.Now())
	r.records[d] = rec
	r.lock.Unlock()

	if err := r.storage.UpdateResult(r.ctx, rec); err != nil {
		r.log.Error("updating run record failed", "error", err, "test", d.String())
	}
}

// Record returns the run record of a test this recorder was notified about.
func (r *Recorder) Record(d model.Description) (model.RunRecord, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	rec, ok := r.records[d]
	if !ok {
		return model.RunRecord{}, model.NotFoundError{Kind: "run", Name: d.String()}
	}

	return rec, nil
}
