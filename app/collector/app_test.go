package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/canopy-network/trackx/pkg/collector"
	"github.com/canopy-network/trackx/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRunner struct {
	calls    atomic.Int32
	err      error
	deadline atomic.Bool
}

func (f *fakeRunner) Run(ctx context.Context) (collector.Result, error) {
	f.calls.Add(1)
	_, ok := ctx.Deadline()
	f.deadline.Store(ok)
	return collector.Result{RunID: "run", Repositories: 3}, f.err
}

// slowRunner records how many runs are in progress at once.
type slowRunner struct {
	delay    time.Duration
	calls    atomic.Int32
	active   atomic.Int32
	peak     atomic.Int32
	finished atomic.Int32
}

func (s *slowRunner) Run(context.Context) (collector.Result, error) {
	s.calls.Add(1)
	n := s.active.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(s.delay)
	s.active.Add(-1)
	s.finished.Add(1)
	return collector.Result{RunID: "slow"}, nil
}

type panickingRunner struct{}

func (panickingRunner) Run(context.Context) (collector.Result, error) {
	panic("scraper exploded")
}

func newTestApp(t *testing.T, r Runner) *App {
	return &App{
		Runner:     r,
		CronSpec:   "* * * * * *",
		RunTimeout: time.Second,
		Metrics:    metrics.NewWithRegistry(prometheus.NewRegistry()),
		Logger:     zaptest.NewLogger(t),
	}
}

func get(t *testing.T, h http.Handler, path string) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestRunOnceRecordsOutcome(t *testing.T) {
	runner := &fakeRunner{}
	app := newTestApp(t, runner)
	router := app.Router()

	assert.False(t, app.Ready(), "not ready before the first run")
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz"))

	app.RunOnce(context.Background())
	assert.True(t, runner.deadline.Load(), "runs are bounded by a timeout")
	assert.Equal(t, 3, app.LastRun().Repositories)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz"))

	runner.err = errors.New("boom")
	app.RunOnce(context.Background())
	assert.False(t, app.Ready())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz"))
	assert.Equal(t, http.StatusOK, get(t, router, "/healthz"))
	assert.Equal(t, http.StatusOK, get(t, router, "/metrics"))
}

func TestSchedulerRunsOnCron(t *testing.T) {
	runner := &fakeRunner{}
	app := newTestApp(t, runner)
	require.NoError(t, app.SetupScheduler(context.Background()))

	app.StartCron()
	require.Eventually(t, func() bool { return runner.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	app.StopCron()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	app := newTestApp(t, &fakeRunner{})
	app.CronSpec = "every hour"
	require.Error(t, app.SetupScheduler(context.Background()))
}

func TestStartupRunDoesNotOverlapScheduledRuns(t *testing.T) {
	runner := &slowRunner{delay: 1500 * time.Millisecond}
	app := newTestApp(t, runner)
	require.NoError(t, app.SetupScheduler(context.Background()))

	app.RunNow()
	app.StartCron()
	time.Sleep(2500 * time.Millisecond)
	app.StopCron()
	app.runs.Wait()

	assert.GreaterOrEqual(t, runner.calls.Load(), int32(1))
	assert.Equal(t, int32(1), runner.peak.Load(), "collector runs overlapped")
}

func TestRunNowRecoversPanic(t *testing.T) {
	app := newTestApp(t, panickingRunner{})
	require.NoError(t, app.SetupScheduler(context.Background()))

	app.RunNow()
	app.runs.Wait()
	assert.False(t, app.Ready())
}

func TestStartWaitsForStartupRun(t *testing.T) {
	runner := &slowRunner{delay: 300 * time.Millisecond}
	app := newTestApp(t, runner)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, app.SetupScheduler(ctx))
	app.Server = &http.Server{Addr: "127.0.0.1:0", Handler: app.Router()}

	app.RunNow()
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	app.Start(ctx)

	assert.Equal(t, int32(1), runner.finished.Load(), "Start returned while a run was writing")
	assert.True(t, app.Ready())
}
