package query

import (
	"context"
	"time"

	"github.com/canopy-network/trackx/app/query/types"
	"github.com/canopy-network/trackx/pkg/cache"
	"github.com/canopy-network/trackx/pkg/db"
	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	"github.com/canopy-network/trackx/pkg/db/postgres"
	"github.com/canopy-network/trackx/pkg/logging"
	"github.com/canopy-network/trackx/pkg/metrics"
	"github.com/canopy-network/trackx/pkg/redis"
	"github.com/canopy-network/trackx/pkg/utils"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	campaignDB, reposDB, err := db.NewStores(ctx, logger, clickhouse.GetPoolConfigForComponent("query"))
	if err != nil {
		logger.Fatal("Unable to initialize databases", zap.Error(err))
	}

	app := &types.App{
		CampaignDB:  campaignDB,
		ReposDB:     reposDB,
		Generations: types.NewGenerations(),
		Metrics:     metrics.New(),
		Logger:      logger,
	}

	if utils.EnvBool("POSTGRES_ENABLED", false) {
		pg, err := postgres.New(ctx, logger.With(zap.String("component", "postgres")), postgres.GetPoolConfigForComponent("query"))
		if err != nil {
			logger.Fatal("Unable to initialize postgres", zap.Error(err))
		}
		app.Postgres = &pg
	} else {
		logger.Info("Postgres disabled - /db-version will return 503")
	}

	// Redis is optional: without it every request reads the stores
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err := redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - query cache will be disabled", zap.Error(err))
		} else {
			app.RedisClient = redisClient
			app.Cache = redisClient
		}
	} else {
		logger.Info("Redis disabled - using the in-process query cache")
	}
	if app.Cache == nil {
		app.Cache = cache.NewLocal(utils.EnvInt("QUERY_LOCAL_CACHE_SIZE", 1024), utils.EnvDuration("QUERY_CACHE_TTL", time.Minute))
	}

	return app
}
