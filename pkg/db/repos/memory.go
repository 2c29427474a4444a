package repos

import (
	"context"
	"sort"
	"time"

	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
	"github.com/canopy-network/trackx/pkg/replacing"
)

// MemoryStore mirrors the ClickHouse tables with in-process replacing tables.
// Reads are deduplicated like FINAL; Compact physically drops the losers.
type MemoryStore struct {
	repositories *replacing.Table[repomodels.RepositoryKey, repomodels.Repository]
	authors      *replacing.Table[repomodels.AuthorCommitsKey, repomodels.AuthorCommits]
	positions    *replacing.Table[repomodels.PositionKey, repomodels.Position]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		repositories: replacing.NewVersionedTable(
			func(r repomodels.Repository) repomodels.RepositoryKey { return r.Key() },
			func(r repomodels.Repository) int64 { return r.Updated.Unix() },
		),
		authors:   replacing.NewTable(func(a repomodels.AuthorCommits) repomodels.AuthorCommitsKey { return a.Key() }),
		positions: replacing.NewTable(func(p repomodels.Position) repomodels.PositionKey { return p.Key() }),
	}
}

func (m *MemoryStore) DatabaseName() string { return "memory" }

func (m *MemoryStore) InitializeDB(context.Context) error { return nil }

func (m *MemoryStore) InsertRepositories(ctx context.Context, rows []repomodels.Repository) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.repositories.Insert(rows...)
	return nil
}

func (m *MemoryStore) InsertAuthorsCommits(ctx context.Context, rows []repomodels.AuthorCommits) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.authors.Insert(rows...)
	return nil
}

func (m *MemoryStore) InsertPositions(ctx context.Context, rows []repomodels.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.positions.Insert(rows...)
	return nil
}

func (m *MemoryStore) ListRepositories(ctx context.Context, limit int) ([]repomodels.Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	out := m.repositories.Final()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stars != out[j].Stars {
			return out[i].Stars > out[j].Stars
		}
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetRepository(ctx context.Context, owner, name string) (*repomodels.Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := m.repositories.Get(repomodels.RepositoryKey{Owner: owner, Name: name})
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) ListPositions(ctx context.Context, day time.Time) ([]repomodels.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	date := day.UTC().Format(time.DateOnly)

	var out []repomodels.Position
	for _, p := range m.positions.Final() {
		if p.Key().Date == date {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Repo < out[j].Repo
	})
	return out, nil
}

func (m *MemoryStore) ListAuthorsCommits(ctx context.Context, day time.Time, repo string) ([]repomodels.AuthorCommits, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	date := day.UTC().Format(time.DateOnly)

	var out []repomodels.AuthorCommits
	for _, a := range m.authors.Final() {
		if a.Repo == repo && a.Key().Date == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CommitsNum != out[j].CommitsNum {
			return out[i].CommitsNum > out[j].CommitsNum
		}
		return out[i].Author < out[j].Author
	})
	return out, nil
}

// Compact collapses duplicate keys in every table.
func (m *MemoryStore) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.repositories.Compact()
	m.authors.Compact()
	m.positions.Compact()
	return nil
}

// PhysicalRows reports stored rows per table, duplicates included.
func (m *MemoryStore) PhysicalRows() map[string]int {
	return map[string]int{
		repomodels.RepositoriesTableName:   m.repositories.Len(),
		repomodels.AuthorsCommitsTableName: m.authors.Len(),
		repomodels.PositionsTableName:      m.positions.Len(),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }
