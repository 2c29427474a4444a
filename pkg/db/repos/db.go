package repos

import (
	"context"
	"fmt"

	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	"github.com/canopy-network/trackx/pkg/db/models"
	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
	"go.uber.org/zap"
)

// DB holds the repositories, repositories_authors_commits and repositories_positions tables.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects to ClickHouse and makes sure the database and tables exist.
func New(ctx context.Context, logger *zap.Logger, name string, poolConfig *clickhouse.PoolConfig) (*DB, error) {
	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", "repos_db"),
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

// DatabaseName returns the repos database name.
func (db *DB) DatabaseName() string {
	return db.Name
}

// InitializeDB ensures the database and the three replacing tables exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initializing repos database", zap.String("database", db.Name))

	defs := tableDefs(&db.Client, db.Name)
	if err := validateTableDefs(defs); err != nil {
		return err
	}

	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}

	for _, t := range defs {
		db.Logger.Debug("Initialize table", zap.String("table", t.name))
		if err := db.Exec(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}

// Compact runs OPTIMIZE ... FINAL on every table so duplicate keys collapse now
// instead of at the next background merge.
func (db *DB) Compact(ctx context.Context) error {
	for _, table := range []string{repomodels.RepositoriesTableName, repomodels.AuthorsCommitsTableName, repomodels.PositionsTableName} {
		if err := db.OptimizeTable(ctx, db.Name, table, true); err != nil {
			return err
		}
	}
	return nil
}

type tableDef struct {
	name string
	ddl  string
	cols []models.ColumnDef
}

func validateTableDefs(defs []tableDef) error {
	for _, t := range defs {
		if err := models.ValidateColumns(t.cols); err != nil {
			return fmt.Errorf("table %s: %w", t.name, err)
		}
	}
	return nil
}

// tableDefs returns the DDL of the three tables:
//   - repositories: ReplacingMergeTree(updated), latest snapshot per (owner, name)
//   - repositories_authors_commits: ReplacingMergeTree, last insert per (date, repo, author)
//   - repositories_positions: ReplacingMergeTree, last insert per (date, repo)
func tableDefs(c *clickhouse.Client, database string) []tableDef {
	create := func(table string, cols []models.ColumnDef, versionCol, orderBy string) tableDef {
		return tableDef{name: table, cols: cols, ddl: fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" %s (
			%s
		) ENGINE = %s
		ORDER BY (%s)
	`, database, table, c.OnCluster(), models.ColumnsToSchemaSQL(cols), c.Engine(clickhouse.ReplacingMergeTree, versionCol), orderBy)}
	}

	return []tableDef{
		create(repomodels.RepositoriesTableName, repomodels.RepositoryColumns, "updated", "owner, name"),
		create(repomodels.AuthorsCommitsTableName, repomodels.AuthorCommitsColumns, "", "date, repo, author"),
		create(repomodels.PositionsTableName, repomodels.PositionColumns, "", "date, repo"),
	}
}
