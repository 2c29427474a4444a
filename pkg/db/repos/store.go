package repos

import (
	"context"
	"time"

	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
)

// Store exposes the repository metrics tables. Writes are insert-or-replace only;
// reads deduplicate at query time, so they see the latest row per key even before a merge.
type Store interface {
	DatabaseName() string
	InitializeDB(ctx context.Context) error

	InsertRepositories(ctx context.Context, rows []repomodels.Repository) error
	InsertAuthorsCommits(ctx context.Context, rows []repomodels.AuthorCommits) error
	InsertPositions(ctx context.Context, rows []repomodels.Position) error

	ListRepositories(ctx context.Context, limit int) ([]repomodels.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (*repomodels.Repository, error)
	ListPositions(ctx context.Context, day time.Time) ([]repomodels.Position, error)
	ListAuthorsCommits(ctx context.Context, day time.Time, repo string) ([]repomodels.AuthorCommits, error)

	// Compact forces the background deduplication to run now.
	Compact(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}
