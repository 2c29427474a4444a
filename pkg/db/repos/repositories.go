package repos

import (
	"context"
	"fmt"

	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	"github.com/canopy-network/trackx/pkg/db/models"
	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
)

// InsertRepositories appends repository snapshots in one batch.
// ReplacingMergeTree(updated) keeps the newest snapshot per (owner, name) once parts merge.
func (db *DB) InsertRepositories(ctx context.Context, rows []repomodels.Repository) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s"."%s" %s`, db.Name, repomodels.RepositoriesTableName, models.InsertColumnsSQL(repomodels.RepositoryColumns))
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare repositories batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range rows {
		err := batch.Append(r.Name, r.Owner, r.Stars, r.Watchers, r.Forks, r.Language, r.Updated.UTC())
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append repository %s: %w", r.FullName(), err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send repositories batch: %w", err)
	}
	return nil
}

// ListRepositories returns the latest snapshot of each repository, most starred first.
func (db *DB) ListRepositories(ctx context.Context, limit int) ([]repomodels.Repository, error) {
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT name, owner, stars, watchers, forks, language, updated
		FROM "%s"."%s" FINAL
		ORDER BY stars DESC, owner ASC, name ASC
		LIMIT ?
	`, db.Name, repomodels.RepositoriesTableName)

	var out []repomodels.Repository
	if err := db.SelectWithFinal(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return out, nil
}

// GetRepository returns the latest snapshot of owner/name, or nil when it was never stored.
func (db *DB) GetRepository(ctx context.Context, owner, name string) (*repomodels.Repository, error) {
	query := fmt.Sprintf(`
		SELECT name, owner, stars, watchers, forks, language, updated
		FROM "%s"."%s" FINAL
		WHERE owner = ? AND name = ?
		LIMIT 1
	`, db.Name, repomodels.RepositoriesTableName)

	var r repomodels.Repository
	err := db.QueryRow(ctx, query, owner, name).Scan(
		&r.Name,
		&r.Owner,
		&r.Stars,
		&r.Watchers,
		&r.Forks,
		&r.Language,
		&r.Updated,
	)
	if err != nil {
		if clickhouse.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get repository %s/%s: %w", owner, name, err)
	}
	return &r, nil
}
