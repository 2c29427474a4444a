// Package db opens the stores selected by configuration.
package db

import (
	"context"

	"github.com/canopy-network/trackx/pkg/db/campaign"
	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	"github.com/canopy-network/trackx/pkg/db/repos"
	"github.com/canopy-network/trackx/pkg/utils"
	"go.uber.org/zap"
)

const (
	BackendClickHouse = "clickhouse"
	BackendMemory     = "memory"
)

// NewStores opens the campaign and repos stores selected by STORE_BACKEND (clickhouse|memory).
// Database names come from CAMPAIGN_DB and REPOS_DB.
func NewStores(ctx context.Context, logger *zap.Logger, poolConfig *clickhouse.PoolConfig) (campaign.Store, repos.Store, error) {
	if utils.Env("STORE_BACKEND", BackendClickHouse) == BackendMemory {
		logger.Warn("Using in-memory stores, data is lost on restart")
		return campaign.NewMemoryStore(), repos.NewMemoryStore(), nil
	}

	campaignDbName := utils.Env("CAMPAIGN_DB", "trackx_campaigns")
	reposDbName := utils.Env("REPOS_DB", "trackx_repos")
	logger.Info("Creating databases", zap.String("campaignDbName", campaignDbName), zap.String("reposDbName", reposDbName))

	campaignDB, err := campaign.New(ctx, logger, campaignDbName, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	reposDB, err := repos.New(ctx, logger, reposDbName, poolConfig)
	if err != nil {
		_ = campaignDB.Close()
		return nil, nil, err
	}
	return campaignDB, reposDB, nil
}
