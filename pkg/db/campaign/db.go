package campaign

import (
	"context"
	"fmt"

	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	"github.com/canopy-network/trackx/pkg/db/models"
	campaignmodels "github.com/canopy-network/trackx/pkg/db/models/campaign"
	"go.uber.org/zap"
)

// DB stores raw view events and runs the hourly delta query over them.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects to ClickHouse and makes sure the database and tables exist.
func New(ctx context.Context, logger *zap.Logger, name string, poolConfig *clickhouse.PoolConfig) (*DB, error) {
	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", "campaign_db"),
	), name, poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: name}
	if err := db.InitializeDB(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return db, nil
}

// DatabaseName returns the campaign database name.
func (db *DB) DatabaseName() string {
	return db.Name
}

// InitializeDB creates the database and the phrases_views table if needed.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initializing campaign database", zap.String("database", db.Name))

	if err := models.ValidateColumns(campaignmodels.ViewColumns); err != nil {
		return fmt.Errorf("table %s: %w", campaignmodels.ViewsTableName, err)
	}

	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}
	if err := db.Exec(ctx, viewsTableDDL(&db.Client, db.Name)); err != nil {
		return fmt.Errorf("create table %s: %w", campaignmodels.ViewsTableName, err)
	}
	return nil
}

// viewsTableDDL partitions by month and sorts by (campaign_id, phrase, dt) so a
// campaign/day scan reads one contiguous range per phrase.
func viewsTableDDL(c *clickhouse.Client, database string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" %s (
			%s
		) ENGINE = %s
		PARTITION BY toYYYYMM(dt)
		ORDER BY (campaign_id, phrase, dt)
	`, database, campaignmodels.ViewsTableName, c.OnCluster(),
		models.ColumnsToSchemaSQL(campaignmodels.ViewColumns),
		c.Engine(clickhouse.MergeTree, ""))
}
