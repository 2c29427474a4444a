package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
)

// InsertPositions appends leaderboard positions in one batch.
func (db *DB) InsertPositions(ctx context.Context, rows []repomodels.Position) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s"."%s" %s`, db.Name, repomodels.PositionsTableName, models.InsertColumnsSQL(repomodels.PositionColumns))
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare positions batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, p := range rows {
		if err := batch.Append(p.Date.UTC(), p.Repo, p.Position); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append position %s: %w", p.Repo, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send positions batch: %w", err)
	}
	return nil
}

// ListPositions returns the leaderboard of day, top position first.
func (db *DB) ListPositions(ctx context.Context, day time.Time) ([]repomodels.Position, error) {
	query := fmt.Sprintf(`
		SELECT date, repo, position
		FROM "%s"."%s" FINAL
		WHERE date = toDate(?)
		ORDER BY position ASC, repo ASC
	`, db.Name, repomodels.PositionsTableName)

	var out []repomodels.Position
	if err := db.SelectWithFinal(ctx, &out, query, day.UTC().Format(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return out, nil
}
