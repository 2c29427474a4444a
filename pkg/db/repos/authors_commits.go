package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
)

// InsertAuthorsCommits appends per-author daily commit counts in one batch.
func (db *DB) InsertAuthorsCommits(ctx context.Context, rows []repomodels.AuthorCommits) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s"."%s" %s`, db.Name, repomodels.AuthorsCommitsTableName, models.InsertColumnsSQL(repomodels.AuthorCommitsColumns))
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare authors commits batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, a := range rows {
		if err := batch.Append(a.Date.UTC(), a.Repo, a.Author, a.CommitsNum); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append authors commits %s/%s: %w", a.Repo, a.Author, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send authors commits batch: %w", err)
	}
	return nil
}

// ListAuthorsCommits returns the deduplicated commit counts of repo on day, busiest author first.
func (db *DB) ListAuthorsCommits(ctx context.Context, day time.Time, repo string) ([]repomodels.AuthorCommits, error) {
	query := fmt.Sprintf(`
		SELECT date, repo, author, commits_num
		FROM "%s"."%s" FINAL
		WHERE date = toDate(?) AND repo = ?
		ORDER BY commits_num DESC, author ASC
	`, db.Name, repomodels.AuthorsCommitsTableName)

	var out []repomodels.AuthorCommits
	if err := db.SelectWithFinal(ctx, &out, query, day.UTC().Format(time.DateOnly), repo); err != nil {
		return nil, fmt.Errorf("list authors commits: %w", err)
	}
	return out, nil
}
