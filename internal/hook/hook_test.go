package hook_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raphi011/pinpoint/internal/hook"
	"github.com/raphi011/pinpoint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	name  string
	calls *[]string
}

func (c collector) Start(d model.Description) {
	*c.calls = append(*c.calls, c.name+" start "+d.String())
}

func (c collector) Complete(d model.Description, o model.Outcome) {
	*c.calls = append(*c.calls, c.name+" complete "+d.String()+" "+string(o.Status))
}

func TestBroadcastForwardsInOrder(t *testing.T) {
	var calls []string

	d := model.Description{Class: "Calc", Method: "m1"}

	b := hook.Broadcast(collector{name: "a", calls: &calls}, nil, collector{name: "b", calls: &calls})
	b.Start(d)
	b.Complete(d, model.Passed())

	assert.Equal(t, []string{
		"a start Calc.m1",
		"b start Calc.m1",
		"a complete Calc.m1 passed",
		"b complete Calc.m1 passed",
	}, calls)
}

type syncHook struct {
	initErr  error
	finished []model.Outcome
}

func (h *syncHook) Name() string { return "sync" }
func (h *syncHook) Init() error  { return h.initErr }
func (h *syncHook) TestFinished(_ model.Description, o model.Outcome) {
	h.finished = append(h.finished, o)
}

type asyncHook struct {
	mu       sync.Mutex
	finished []model.Description
}

func (h *asyncHook) Name() string { return "async" }
func (h *asyncHook) Init() error  { return nil }
func (h *asyncHook) TestFinishedAsync(d model.Description, _ model.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.finished = append(h.finished, d)
}

type panicingHook struct{}

func (panicingHook) Name() string { return "panic" }
func (panicingHook) Init() error  { return nil }
func (panicingHook) TestFinished(model.Description, model.Outcome) {
	panic("boom")
}

type uselessHook struct{}

func (uselessHook) Name() string { return "useless" }
func (uselessHook) Init() error  { return nil }

func TestManagerNotifiesHooks(t *testing.T) {
	s := &syncHook{}
	a := &asyncHook{}

	m := hook.NewManager(slog.Default(), panicingHook{}, s, a)
	require.NoError(t, m.Init())

	d := model.Description{Class: "Calc", Method: "m1"}

	m.Start(d)
	m.Complete(d, model.Failed("expected 4 got 5"))

	require.NoError(t, m.Shutdown(context.Background()))

	assert.Equal(t, []model.Outcome{model.Failed("expected 4 got 5")}, s.finished)
	assert.Equal(t, []model.Description{d}, a.finished)
}

func TestManagerInitFails(t *testing.T) {
	m := hook.NewManager(slog.Default(), &syncHook{initErr: errors.New("no token")})
	assert.ErrorContains(t, m.Init(), `initiating hook "sync": no token`)

	m = hook.NewManager(slog.Default(), uselessHook{})
	assert.ErrorContains(t, m.Init(), "does not implement any listener")
}

func TestElasticSearchHookIndexesResult(t *testing.T) {
	var (
		mu      sync.Mutex
		path    string
		indexed map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodGet && r.URL.Path == "/" {
			_, _ = io.WriteString(w, `{"version":{"number":"8.6.0"},"tagline":"You Know, for Search"}`)
			return
		}

		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		path = r.URL.Path
		_ = json.Unmarshal(body, &indexed)
		mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	}))
	defer srv.Close()

	h, err := hook.NewElasticSearchHook(srv.URL, "pinpoint-results", "ci", slog.Default())
	require.NoError(t, err)

	m := hook.NewManager(slog.Default(), h)
	require.NoError(t, m.Init())

	m.Complete(model.Description{Class: "Calc", Method: "m1"}, model.Failed("expected 4 got 5"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()

	assert.True(t, strings.HasPrefix(path, "/pinpoint-results/_doc"), path)
	assert.Equal(t, "Calc.m1", indexed["test"])
	assert.Equal(t, "failed", indexed["status"])
	assert.Equal(t, "expected 4 got 5", indexed["message"])
	assert.Equal(t, "ci", indexed["instance"])
}

func TestElasticSearchHookInitFailsOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	h, err := hook.NewElasticSearchHook(srv.URL, "pinpoint-results", "", slog.Default())
	require.NoError(t, err)

	assert.Error(t, h.Init())
}
