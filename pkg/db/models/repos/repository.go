package repos

import (
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
	"github.com/canopy-network/trackx/pkg/utils"
)

const (
	RepositoriesTableName   = "repositories"
	AuthorsCommitsTableName = "repositories_authors_commits"
	PositionsTableName      = "repositories_positions"
)

// UnknownLanguage is stored when GitHub reports no primary language.
const UnknownLanguage = "Unknown"

// RepositoryColumns defines the schema for the repositories table.
// Table: ReplacingMergeTree(updated) ORDER BY (owner, name)
var RepositoryColumns = []models.ColumnDef{
	{Name: "name", Type: "String"},
	{Name: "owner", Type: "String"},
	{Name: "stars", Type: "UInt64"},
	{Name: "watchers", Type: "UInt64"},
	{Name: "forks", Type: "UInt64"},
	{Name: "language", Type: "LowCardinality(String)"},
	{Name: "updated", Type: "DateTime"},
}

// Repository is a point-in-time snapshot of a repository's popularity counters.
type Repository struct {
	Name     string    `json:"name" ch:"name"`
	Owner    string    `json:"owner" ch:"owner"`
	Stars    uint64    `json:"stars" ch:"stars"`
	Watchers uint64    `json:"watchers" ch:"watchers"`
	Forks    uint64    `json:"forks" ch:"forks"`
	Language string    `json:"language" ch:"language"`
	Updated  time.Time `json:"updated" ch:"updated"`
}

// RepositoryKey is the replacing key of the repositories table.
type RepositoryKey struct {
	Owner string
	Name  string
}

func (r Repository) Key() RepositoryKey {
	return RepositoryKey{Owner: r.Owner, Name: r.Name}
}

// FullName returns "owner/name", the form used as repo in the other two tables.
func (r Repository) FullName() string {
	return utils.RepoFullName(r.Owner, r.Name)
}
