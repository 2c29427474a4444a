// Package collector turns a leaderboard scrape into rows of the repository metrics tables.
package collector

import (
	"context"
	"fmt"
	"time"

	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
	"github.com/canopy-network/trackx/pkg/github"
	"github.com/canopy-network/trackx/pkg/metrics"
	"github.com/canopy-network/trackx/pkg/redis"
	"github.com/canopy-network/trackx/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fetcher returns the current leaderboard. *github.Scraper implements it.
type Fetcher interface {
	GetRepositories(ctx context.Context, limit int) ([]github.Repository, error)
}

// Writer is the write side of the repository metrics store.
type Writer interface {
	InsertRepositories(ctx context.Context, rows []repomodels.Repository) error
	InsertPositions(ctx context.Context, rows []repomodels.Position) error
	InsertAuthorsCommits(ctx context.Context, rows []repomodels.AuthorCommits) error
}

// Publisher announces finished runs. *redis.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{})
}

type Config struct {
	Limit      int
	BatchSize  int
	BatchPause time.Duration
}

// ConfigFromEnv reads COLLECTOR_LIMIT, COLLECTOR_BATCH_SIZE and COLLECTOR_BATCH_PAUSE.
func ConfigFromEnv() Config {
	return Config{
		Limit:      utils.EnvInt("COLLECTOR_LIMIT", 100),
		BatchSize:  utils.EnvInt("COLLECTOR_BATCH_SIZE", 1000),
		BatchPause: utils.EnvDuration("COLLECTOR_BATCH_PAUSE", 100*time.Millisecond),
	}
}

// Result counts the rows written by one run.
type Result struct {
	RunID          string    `json:"run_id"`
	Updated        time.Time `json:"updated"`
	Repositories   int       `json:"repositories"`
	Positions      int       `json:"positions"`
	AuthorsCommits int       `json:"authors_commits"`
}

func (r Result) rows() map[string]int {
	return map[string]int{
		repomodels.RepositoriesTableName:   r.Repositories,
		repomodels.PositionsTableName:      r.Positions,
		repomodels.AuthorsCommitsTableName: r.AuthorsCommits,
	}
}

type Collector struct {
	fetcher   Fetcher
	writer    Writer
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// Option customizes a Collector.
type Option func(*Collector)

func WithPublisher(p Publisher) Option { return func(c *Collector) { c.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Collector) { c.metrics = m } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Collector) { c.now = now } }

func New(fetcher Fetcher, writer Writer, logger *zap.Logger, cfg Config, opts ...Option) *Collector {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		fetcher: fetcher,
		writer:  writer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run scrapes the leaderboard once and stores it. All repository rows share one
// updated timestamp, and positions and author commits are dated today (UTC).
func (c *Collector) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	res.RunID = uuid.NewString()
	logger := c.logger.With(zap.String("run_id", res.RunID))
	defer func() { c.metrics.ObserveCollectorRun(start, res.rows(), err) }()

	logger.Info("Fetching repositories", zap.Int("limit", c.cfg.Limit))
	scraped, err := c.fetcher.GetRepositories(ctx, c.cfg.Limit)
	if err != nil {
		return res, fmt.Errorf("fetch repositories: %w", err)
	}
	if len(scraped) == 0 {
		logger.Warn("No repositories data to save")
		return res, nil
	}

	now := c.now().UTC().Truncate(time.Second)
	res.Updated = now
	repositories, positions, authors := BuildRows(scraped, now)

	logger.Info("Saving repositories data", zap.Int("repositories", len(repositories)))

	if err := insertInBatches(ctx, c, logger, repomodels.RepositoriesTableName, repositories, c.writer.InsertRepositories); err != nil {
		return res, err
	}
	res.Repositories = len(repositories)

	if err := insertInBatches(ctx, c, logger, repomodels.PositionsTableName, positions, c.writer.InsertPositions); err != nil {
		return res, err
	}
	res.Positions = len(positions)

	if err := insertInBatches(ctx, c, logger, repomodels.AuthorsCommitsTableName, authors, c.writer.InsertAuthorsCommits); err != nil {
		return res, err
	}
	res.AuthorsCommits = len(authors)

	logger.Info("Saved repositories data",
		zap.Int("repositories", res.Repositories),
		zap.Int("positions", res.Positions),
		zap.Int("authors_commits", res.AuthorsCommits),
		zap.Duration("elapsed", time.Since(start)))

	if c.publisher != nil {
		c.publisher.Publish(ctx, redis.ChannelReposCollected, res.RunID)
	}
	return res, nil
}

// BuildRows maps scraped repositories to table rows. repo is "owner/name" and
// date is the UTC day of now.
func BuildRows(scraped []github.Repository, now time.Time) ([]repomodels.Repository, []repomodels.Position, []repomodels.AuthorCommits) {
	day := utils.DayStart(now)

	repositories := make([]repomodels.Repository, 0, len(scraped))
	positions := make([]repomodels.Position, 0, len(scraped))
	var authors []repomodels.AuthorCommits

	for _, r := range scraped {
		language := r.Language
		if language == "" {
			language = repomodels.UnknownLanguage
		}
		full := utils.RepoFullName(r.Owner, r.Name)

		repositories = append(repositories, repomodels.Repository{
			Name:     r.Name,
			Owner:    r.Owner,
			Stars:    r.Stars,
			Watchers: r.Watchers,
			Forks:    r.Forks,
			Language: language,
			Updated:  now,
		})
		positions = append(positions, repomodels.Position{Date: day, Repo: full, Position: r.Position})
		for _, a := range r.AuthorsCommitsNumToday {
			authors = append(authors, repomodels.AuthorCommits{Date: day, Repo: full, Author: a.Author, CommitsNum: a.CommitsNum})
		}
	}
	return repositories, positions, authors
}

// insertInBatches writes rows in chunks of BatchSize, sleeping BatchPause between chunks.
// The first failing chunk aborts the rest.
func insertInBatches[T any](ctx context.Context, c *Collector, logger *zap.Logger, table string, rows []T, insert func(context.Context, []T) error) error {
	size := c.cfg.BatchSize
	for i := 0; i < len(rows); i += size {
		end := min(i+size, len(rows))
		batch := rows[i:end]

		if err := insert(ctx, batch); err != nil {
			logger.Error("Error inserting batch", zap.String("table", table), zap.Error(err))
			return fmt.Errorf("insert %s batch at offset %d: %w", table, i, err)
		}
		logger.Debug("Inserted batch", zap.String("table", table), zap.Int("rows", len(batch)))

		if end < len(rows) && c.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.BatchPause):
			}
		}
	}
	return nil
}
