package collector

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/canopy-network/trackx/pkg/collector"
	"github.com/canopy-network/trackx/pkg/db"
	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	"github.com/canopy-network/trackx/pkg/db/repos"
	"github.com/canopy-network/trackx/pkg/github"
	"github.com/canopy-network/trackx/pkg/logging"
	"github.com/canopy-network/trackx/pkg/metrics"
	"github.com/canopy-network/trackx/pkg/redis"
	"github.com/canopy-network/trackx/pkg/utils"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is one collection pass. *collector.Collector implements it.
type Runner interface {
	Run(ctx context.Context) (collector.Result, error)
}

// App runs the collector every Cron tick and serves health and metrics.
type App struct {
	ReposDB repos.Store
	Scraper *github.Scraper
	Runner  Runner

	// Cron is the scheduler that triggers collection runs at specified intervals, according to CronSpec.
	Cron       *cron.Cron
	CronSpec   string
	RunTimeout time.Duration

	RedisClient *redis.Client
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	// Server is the HTTP server that serves /healthz, /readyz and /metrics.
	Server *http.Server

	// job is RunOnce wrapped in Recover and SkipIfStillRunning. Cron ticks and RunNow share it.
	job  cron.Job
	runs sync.WaitGroup

	mu      sync.RWMutex
	ran     bool
	last    collector.Result
	lastErr error
}

// Initialize initializes the App.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	_, reposDB, err := db.NewStores(ctx, logger, clickhouse.GetPoolConfigForComponent("collector"))
	if err != nil {
		logger.Fatal("Unable to initialize databases", zap.Error(err))
	}

	m := metrics.New()

	ghOpts := github.OptsFromEnv()
	ghOpts.Logger = logger.With(zap.String("component", "github"))
	ghOpts.Metrics = m
	scraper := github.NewScraper(github.NewClient(ghOpts), ghOpts.Logger)

	opts := []collector.Option{collector.WithMetrics(m)}
	var redisClient *redis.Client
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - run notifications will be disabled", zap.Error(err))
			redisClient = nil
		} else {
			opts = append(opts, collector.WithPublisher(redisClient))
		}
	}

	app := &App{
		ReposDB:     reposDB,
		Scraper:     scraper,
		Runner:      collector.New(scraper, reposDB, logger.With(zap.String("component", "collector")), collector.ConfigFromEnv(), opts...),
		CronSpec:    utils.Env("COLLECTOR_CRON", "0 0 * * * *"),
		RunTimeout:  utils.EnvDuration("COLLECTOR_RUN_TIMEOUT", 10*time.Minute),
		RedisClient: redisClient,
		Metrics:     m,
		Logger:      logger,
	}

	if err := app.SetupScheduler(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// SetupScheduler sets up the cron scheduler. Overlapping runs are skipped and panics recovered.
func (a *App) SetupScheduler(ctx context.Context) error {
	logger := cronLogger{a.Logger.Sugar()}
	a.job = cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { a.RunOnce(ctx) }))

	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithLogger(logger))
	_, err := a.Cron.AddJob(a.CronSpec, a.job)
	return err
}

// RunNow starts a run outside the schedule, through the same job as the cron ticks.
// It is skipped when a run is already in progress. Start waits for it before closing the stores.
func (a *App) RunNow() {
	a.runs.Add(1)
	go func() {
		defer a.runs.Done()
		a.job.Run()
	}()
}

// RunOnce runs one collection bounded by RunTimeout and records the outcome.
func (a *App) RunOnce(ctx context.Context) {
	timeout := a.RunTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := a.Runner.Run(rctx)
	if err != nil {
		a.Logger.Error("Collector run failed", zap.String("run_id", res.RunID), zap.Error(err))
	}

	a.mu.Lock()
	a.ran, a.last, a.lastErr = true, res, err
	a.mu.Unlock()
}

// Ready reports whether a run has finished and the last one succeeded.
func (a *App) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ran && a.lastErr == nil
}

// LastRun returns the result of the most recent run.
func (a *App) LastRun() collector.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")
	a.Server = &http.Server{Addr: addr, Handler: a.Router(), ReadHeaderTimeout: 10 * time.Second}
}

func (a *App) Router() http.Handler {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if a.Ready() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})).Methods("GET")
	r.Handle("/metrics", a.Metrics.Handler()).Methods("GET")

	return r
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[collector] Cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron stops the cron scheduler and waits for a running collection.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()
	_ = a.Server.Close()
	a.Logger.Info("[collector] shutting down…")
	a.StopCron()
	a.runs.Wait()

	if a.Scraper != nil {
		a.Scraper.Close()
	}
	if a.ReposDB != nil {
		_ = a.ReposDB.Close()
	}
	if a.RedisClient != nil {
		_ = a.RedisClient.Close()
	}
	a.Logger.Info("さようなら!")
}

// cronLogger routes cron's logs through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("[cron] "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("[cron] "+msg, append(keysAndValues, "error", err)...)
}
