package repos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	"github.com/canopy-network/trackx/pkg/db/models"
	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var _ Store = (*DB)(nil)
var _ Store = (*MemoryStore)(nil)

var day = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTableDefs(t *testing.T) {
	defs := tableDefs(&clickhouse.Client{}, "trackx_repos")
	require.Len(t, defs, 3)

	byName := map[string]string{}
	for _, d := range defs {
		byName[d.name] = d.ddl
	}

	assert.Contains(t, byName["repositories"], "ENGINE = ReplacingMergeTree(updated)")
	assert.Contains(t, byName["repositories"], "ORDER BY (owner, name)")
	assert.Contains(t, byName["repositories"], "language LowCardinality(String)")

	assert.Contains(t, byName["repositories_authors_commits"], "ENGINE = ReplacingMergeTree\n")
	assert.Contains(t, byName["repositories_authors_commits"], "ORDER BY (date, repo, author)")

	assert.Contains(t, byName["repositories_positions"], "ENGINE = ReplacingMergeTree\n")
	assert.Contains(t, byName["repositories_positions"], "ORDER BY (date, repo)")
	assert.Contains(t, byName["repositories_positions"], "position UInt32")
}

func TestValidateTableDefs(t *testing.T) {
	defs := tableDefs(&clickhouse.Client{}, "trackx_repos")
	require.NoError(t, validateTableDefs(defs))

	bad := append([]tableDef{}, defs...)
	bad[1].cols = append([]models.ColumnDef{{Name: "repo", Type: "String"}}, bad[1].cols...)
	err := validateTableDefs(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repositories_authors_commits")
}

func TestTableDefsOnCluster(t *testing.T) {
	for _, d := range tableDefs(&clickhouse.Client{Cluster: "c1"}, "trackx_repos") {
		assert.Contains(t, d.ddl, "ON CLUSTER c1", d.name)
		assert.Contains(t, d.ddl, "ENGINE = ReplicatedReplacingMergeTree", d.name)
	}
}

func TestMemoryRepositoriesLatestSnapshotWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	newer := repomodels.Repository{Owner: "golang", Name: "go", Stars: 120, Language: "Go", Updated: day.Add(2 * time.Hour)}
	older := repomodels.Repository{Owner: "golang", Name: "go", Stars: 100, Language: "Go", Updated: day.Add(time.Hour)}

	// newest first, so insert order alone would pick the wrong row
	require.NoError(t, store.InsertRepositories(ctx, []repomodels.Repository{newer}))
	require.NoError(t, store.InsertRepositories(ctx, []repomodels.Repository{older}))
	assert.Equal(t, 2, store.PhysicalRows()[repomodels.RepositoriesTableName])

	got, err := store.GetRepository(ctx, "golang", "go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(120), got.Stars)

	require.NoError(t, store.Compact(ctx))
	assert.Equal(t, 1, store.PhysicalRows()[repomodels.RepositoriesTableName])

	list, err := store.ListRepositories(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer, list[0])

	missing, err := store.GetRepository(ctx, "golang", "tools")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryListRepositoriesOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.InsertRepositories(ctx, []repomodels.Repository{
		{Owner: "b", Name: "x", Stars: 5, Updated: day},
		{Owner: "a", Name: "y", Stars: 5, Updated: day},
		{Owner: "c", Name: "z", Stars: 50, Updated: day},
	}))

	list, err := store.ListRepositories(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c/z", list[0].FullName())
	assert.Equal(t, "a/y", list[1].FullName())
}

func TestMemoryAuthorsCommitsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.InsertAuthorsCommits(ctx, []repomodels.AuthorCommits{
		{Date: day, Repo: "golang/go", Author: "rsc", CommitsNum: 3},
		{Date: day, Repo: "golang/go", Author: "ianlancetaylor", CommitsNum: 1},
		{Date: day.AddDate(0, 0, 1), Repo: "golang/go", Author: "rsc", CommitsNum: 9},
	}))
	require.NoError(t, store.InsertAuthorsCommits(ctx, []repomodels.AuthorCommits{
		{Date: day, Repo: "golang/go", Author: "rsc", CommitsNum: 4},
	}))

	got, err := store.ListAuthorsCommits(ctx, day, "golang/go")
	require.NoError(t, err)
	assert.Equal(t, []repomodels.AuthorCommits{
		{Date: day, Repo: "golang/go", Author: "rsc", CommitsNum: 4},
		{Date: day, Repo: "golang/go", Author: "ianlancetaylor", CommitsNum: 1},
	}, got)

	none, err := store.ListAuthorsCommits(ctx, day, "golang/tools")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryPositionsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.InsertPositions(ctx, []repomodels.Position{
		{Date: day, Repo: "golang/go", Position: 2},
		{Date: day, Repo: "torvalds/linux", Position: 1},
	}))
	require.NoError(t, store.InsertPositions(ctx, []repomodels.Position{
		{Date: day, Repo: "golang/go", Position: 3},
	}))

	got, err := store.ListPositions(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []repomodels.Position{
		{Date: day, Repo: "torvalds/linux", Position: 1},
		{Date: day, Repo: "golang/go", Position: 3},
	}, got)
}

// Two rows with the same key and a forced compaction leave exactly one row.
func TestMemoryCompactLeavesOneRowPerKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.InsertRepositories(ctx, []repomodels.Repository{
		{Owner: "o", Name: "n", Stars: 1, Updated: day},
		{Owner: "o", Name: "n", Stars: 2, Updated: day.Add(time.Second)},
	}))
	require.NoError(t, store.InsertAuthorsCommits(ctx, []repomodels.AuthorCommits{
		{Date: day, Repo: "o/n", Author: "a", CommitsNum: 1},
		{Date: day, Repo: "o/n", Author: "a", CommitsNum: 2},
	}))
	require.NoError(t, store.InsertPositions(ctx, []repomodels.Position{
		{Date: day, Repo: "o/n", Position: 1},
		{Date: day, Repo: "o/n", Position: 2},
	}))

	for table, n := range store.PhysicalRows() {
		assert.Equal(t, 2, n, table)
	}

	require.NoError(t, store.Compact(ctx))
	require.NoError(t, store.Compact(ctx))

	for table, n := range store.PhysicalRows() {
		assert.Equal(t, 1, n, table)
	}
}

func TestMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	require.ErrorIs(t, store.InsertPositions(ctx, []repomodels.Position{{Date: day, Repo: "o/n"}}), context.Canceled)
	_, err := store.ListRepositories(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}

// TestClickHouseCompact checks deduplication against a live server.
// Set CLICKHOUSE_TEST_ADDR (e.g. clickhouse://localhost:9000) to enable it.
func TestClickHouseCompact(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_TEST_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("integration test requires CLICKHOUSE_TEST_ADDR")
	}
	t.Setenv("CLICKHOUSE_ADDR", addr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	name := clickhouse.SanitizeName("trackx_test_repos_" + time.Now().Format("150405.000"))
	db, err := New(ctx, zaptest.NewLogger(t), name, clickhouse.GetPoolConfigForComponent("cli"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Exec(context.Background(), `DROP DATABASE IF EXISTS "`+name+`"`)
		_ = db.Close()
	})

	for _, table := range []string{repomodels.RepositoriesTableName, repomodels.AuthorsCommitsTableName, repomodels.PositionsTableName} {
		exists, err := db.TableExists(ctx, name, table)
		require.NoError(t, err)
		require.True(t, exists, table)
	}

	// separate inserts land in separate parts
	require.NoError(t, db.InsertRepositories(ctx, []repomodels.Repository{{Owner: "o", Name: "n", Stars: 2, Language: "Go", Updated: day.Add(time.Hour)}}))
	require.NoError(t, db.InsertRepositories(ctx, []repomodels.Repository{{Owner: "o", Name: "n", Stars: 1, Language: "Go", Updated: day}}))
	require.NoError(t, db.InsertPositions(ctx, []repomodels.Position{{Date: day, Repo: "o/n", Position: 1}}))
	require.NoError(t, db.InsertPositions(ctx, []repomodels.Position{{Date: day, Repo: "o/n", Position: 2}}))

	got, err := db.GetRepository(ctx, "o", "n")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(2), got.Stars)

	require.NoError(t, db.Compact(ctx))

	for _, table := range []string{repomodels.RepositoriesTableName, repomodels.PositionsTableName} {
		n, err := db.CountRows(ctx, name, table)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n, table)
	}

	positions, err := db.ListPositions(ctx, day)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, uint32(2), positions[0].Position)
}
