package pinpoint_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/raphi011/pinpoint"
	"github.com/raphi011/pinpoint/client"
	"github.com/raphi011/pinpoint/internal/config"
	"github.com/raphi011/pinpoint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRunOfPassingTestSucceeds(t *testing.T) {
	t.Parallel()

	rec, err := te.client.CreateRun(context.Background(), "Calc", "addsTwoNumbers")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, model.Description{Class: "Calc", Method: "addsTwoNumbers"}, rec.Test)
	assert.Equal(t, model.StatusPassed, rec.Status)
	assert.Equal(t, "http", rec.TriggeredBy)
	assert.Equal(t, "adding\n", rec.Logs)

	stored, err := te.client.GetRun(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)
	assert.Equal(t, model.StatusPassed, stored.Status)
}

func TestCreateRunOfFailingTestReportsMessage(t *testing.T) {
	t.Parallel()

	rec, err := te.client.CreateRun(context.Background(), "Calc", "failsAssertion")
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, "expected 4 got 5", rec.Message)
}

func TestCreateRunOfPanicingTestReportsError(t *testing.T) {
	t.Parallel()

	rec, err := te.client.CreateRun(context.Background(), "Calc", "panics")
	require.NoError(t, err)

	assert.Equal(t, model.StatusError, rec.Status)
	assert.Equal(t, "panic: panic!", rec.Message)
}

func TestCreateRunOfSkippedTest(t *testing.T) {
	t.Parallel()

	rec, err := te.client.CreateRun(context.Background(), "Calc", "skips")
	require.NoError(t, err)

	assert.Equal(t, model.StatusSkipped, rec.Status)
	assert.Equal(t, "skipping test", rec.Message)
}

func TestFailingClassSetupSkipsTheTest(t *testing.T) {
	t.Parallel()

	rec, err := te.client.CreateRun(context.Background(), "BrokenSetup", "addsTwoNumbers")
	require.NoError(t, err)

	assert.Equal(t, model.StatusSkipped, rec.Status)
	assert.Equal(t, "class setup failed: no database", rec.Message)
}

func TestCreateRunWithUnknownClassReturns404(t *testing.T) {
	t.Parallel()

	_, err := te.client.CreateRun(context.Background(), "NotFound", "addsTwoNumbers")

	var reqError client.RequestError
	require.True(t, errors.As(err, &reqError), "expected error of type RequestError but got %T: %v", err, err)
	assert.Equal(t, http.StatusNotFound, reqError.ResponseCode)
}

func TestCreateRunWithUnknownMethodReturns404(t *testing.T) {
	t.Parallel()

	_, err := te.client.CreateRun(context.Background(), "Calc", "multiplies")

	var reqError client.RequestError
	require.ErrorAs(t, err, &reqError)
	assert.Equal(t, http.StatusNotFound, reqError.ResponseCode)
	assert.Equal(t, `method "Calc.multiplies" not found`, reqError.Message)
}

func TestGetRunsListsRunsOfTheMethod(t *testing.T) {
	t.Parallel()

	rec, err := te.client.CreateRun(context.Background(), "Calc", "addsTwoNumbers")
	require.NoError(t, err)

	records, err := te.client.GetRuns(context.Background(), "Calc", "addsTwoNumbers")
	require.NoError(t, err)

	ids := make([]string, len(records))
	for i, r := range records {
		assert.Equal(t, "addsTwoNumbers", r.Test.Method)
		ids[i] = r.ID
	}
	assert.Contains(t, ids, rec.ID)
}

func TestGetUnknownRunReturns404(t *testing.T) {
	t.Parallel()

	_, err := te.client.GetRun(context.Background(), "missing")

	var reqError client.RequestError
	require.ErrorAs(t, err, &reqError)
	assert.Equal(t, http.StatusNotFound, reqError.ResponseCode)
}

func TestGetClasses(t *testing.T) {
	t.Parallel()

	classes, err := te.client.GetClasses(context.Background())
	require.NoError(t, err)

	assert.Contains(t, classes, client.Class{
		Name:    "Calc",
		Loader:  "classes",
		Methods: []string{"addsTwoNumbers", "failsAssertion", "panics", "skips"},
	})
}

func TestHooksReceiveOutcomes(t *testing.T) {
	t.Parallel()

	_, err := te.client.CreateRun(context.Background(), "Calc", "failsAssertion")
	require.NoError(t, err)

	o, ok := te.hook.outcome(model.Description{Class: "Calc", Method: "failsAssertion"})
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, o.Status)
}

func TestRunOnceReturnsOutcome(t *testing.T) {
	t.Parallel()

	o, err := te.p.RunOnce(context.Background(), pinpoint.Description{Class: "Calc", Method: "failsAssertion"})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, o.Status)
	assert.Equal(t, "expected 4 got 5", o.Message)
}

func TestRunOnceWithUnknownClassFails(t *testing.T) {
	t.Parallel()

	_, err := te.p.RunOnce(context.Background(), pinpoint.Description{Class: "Nope", Method: "m1"})

	assert.ErrorAs(t, err, &model.NotFoundError{})
}

func TestScheduledRunIsRecorded(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	for {
		records, err := te.client.GetRuns(ctx, "Scheduled", "tick")
		if errors.Is(err, context.DeadlineExceeded) {
			t.Fatal("timed out waiting for a scheduled run")
		}
		require.NoError(t, err)

		for _, r := range records {
			if r.TriggeredBy == "scheduled" && r.Finished() {
				assert.Equal(t, model.StatusPassed, r.Status)
				return
			}
		}

		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for a scheduled run")
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func TestMetricsAreServed(t *testing.T) {
	t.Parallel()

	_, err := te.client.CreateRun(context.Background(), "Calc", "addsTwoNumbers")
	require.NoError(t, err)

	res, err := http.Get("http://localhost:" + strconv.Itoa(te.p.ServerPort()) + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "pinpoint_units_executed_total")
	assert.Contains(t, string(body), "pinpoint_outcomes_total")
}

func TestNewRejectsDuplicateClasses(t *testing.T) {
	t.Parallel()

	_, err := pinpoint.New(
		pinpoint.WithClasses(
			pinpoint.TestClass{Name: "Calc"},
			pinpoint.TestClass{Name: "Calc"},
		),
	)

	assert.ErrorAs(t, err, &model.DuplicateError{})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	c := config.Default()
	c.Port = -1

	_, err := pinpoint.New(pinpoint.WithConfig(c))

	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestNewFailsForMissingLibrary(t *testing.T) {
	t.Parallel()

	_, err := pinpoint.New(pinpoint.WithLibrary("does-not-exist.so"))

	assert.Error(t, err)
}

func TestRunOnceAfterShutdownIsRejected(t *testing.T) {
	t.Parallel()

	ran := false

	p, err := pinpoint.New(pinpoint.WithClasses(pinpoint.TestClass{
		Name: "Calc",
		Methods: map[string]pinpoint.TestFunc{
			"m1": func(t pinpoint.TB) { ran = true },
		},
	}))
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))

	_, err = p.RunOnce(context.Background(), pinpoint.Description{Class: "Calc", Method: "m1"})

	assert.ErrorIs(t, err, pinpoint.ErrShuttingDown)
	assert.False(t, ran)
}

func TestShutdownDuringExecutionsWaitsForStartedOnes(t *testing.T) {
	t.Parallel()

	p, err := pinpoint.New(pinpoint.WithClasses(pinpoint.TestClass{
		Name: "Calc",
		Methods: map[string]pinpoint.TestFunc{
			"m1": func(t pinpoint.TB) { time.Sleep(time.Millisecond) },
		},
	}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 20)

	for i := 0; i < cap(results); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := p.RunOnce(context.Background(), pinpoint.Description{Class: "Calc", Method: "m1"})
			results <- err
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	require.NoError(t, p.Shutdown(ctx))

	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			assert.ErrorIs(t, err, pinpoint.ErrShuttingDown)
		}
	}
}
