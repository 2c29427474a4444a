package repos

import (
	"testing"
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsValid(t *testing.T) {
	for _, cols := range [][]models.ColumnDef{RepositoryColumns, AuthorCommitsColumns, PositionColumns} {
		require.NoError(t, models.ValidateColumns(cols))
	}
}

func TestKeys(t *testing.T) {
	day := time.Date(2025, 1, 1, 15, 4, 5, 0, time.UTC)

	r := Repository{Owner: "golang", Name: "go", Stars: 10}
	assert.Equal(t, RepositoryKey{Owner: "golang", Name: "go"}, r.Key())
	assert.Equal(t, "golang/go", r.FullName())

	a := AuthorCommits{Date: day, Repo: "golang/go", Author: "rsc", CommitsNum: 3}
	assert.Equal(t, AuthorCommitsKey{Date: "2025-01-01", Repo: "golang/go", Author: "rsc"}, a.Key())

	p := Position{Date: day, Repo: "golang/go", Position: 1}
	assert.Equal(t, PositionKey{Date: "2025-01-01", Repo: "golang/go"}, p.Key())
}
