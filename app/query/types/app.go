package types

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/canopy-network/trackx/pkg/db/campaign"
	"github.com/canopy-network/trackx/pkg/db/repos"
	"github.com/canopy-network/trackx/pkg/metrics"
	"github.com/canopy-network/trackx/pkg/redis"
	"go.uber.org/zap"
)

// Cache stores JSON responses. *redis.Client and *cache.Local implement it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// VersionReader reports the server version of the optional Postgres connection.
type VersionReader interface {
	Version(ctx context.Context) (string, error)
	Close()
}

type App struct {
	CampaignDB campaign.Store
	ReposDB    repos.Store
	// Postgres is nil when POSTGRES_ENABLED is not set.
	Postgres VersionReader
	// RedisClient is nil when Redis is disabled.
	RedisClient *redis.Client
	// Cache is RedisClient when Redis is enabled and an in-process LRU otherwise. Nil disables caching.
	Cache       Cache
	Generations *Generations
	Metrics     *metrics.Metrics
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start serves until ctx is canceled, then shuts the server down and closes every connection.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	if a.RedisClient != nil {
		go a.invalidateOnChange(ctx)
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	if err := a.CampaignDB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.String("db", a.CampaignDB.DatabaseName()), zap.Error(err))
	}
	if err := a.ReposDB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.String("db", a.ReposDB.DatabaseName()), zap.Error(err))
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.RedisClient != nil {
		_ = a.RedisClient.Close()
	}

	a.Logger.Info("さようなら!")
}

// invalidateOnChange drops cached repository responses whenever a collector run finishes,
// and a campaign's cached days whenever any query instance ingests views for it.
func (a *App) invalidateOnChange(ctx context.Context) {
	sub := a.RedisClient.Subscribe(ctx, redis.ChannelReposCollected, redis.ChannelViewsIngested)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			a.handleChange(ctx, msg.Channel, msg.Payload)
		}
	}
}

func (a *App) handleChange(ctx context.Context, channel, payload string) {
	switch channel {
	case redis.ChannelReposCollected:
		a.Invalidate(ctx, CacheKeyReposPrefix)
		a.Logger.Info("Invalidated repositories cache", zap.String("run_id", payload))
	case redis.ChannelViewsIngested:
		campaignID, err := strconv.ParseUint(payload, 10, 64)
		if err != nil {
			a.Logger.Warn("Ignoring malformed views event", zap.String("payload", payload))
			return
		}
		a.Invalidate(ctx, HourlyViewsCachePrefix(campaignID))
	}
}
