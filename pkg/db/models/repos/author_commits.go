package repos

import (
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
)

// AuthorCommitsColumns defines the schema for the repositories_authors_commits table.
// Table: ReplacingMergeTree ORDER BY (date, repo, author)
var AuthorCommitsColumns = []models.ColumnDef{
	{Name: "date", Type: "Date"},
	{Name: "repo", Type: "String"},
	{Name: "author", Type: "String"},
	{Name: "commits_num", Type: "UInt64"},
}

// AuthorCommits is the number of commits an author pushed to a repo during a day.
type AuthorCommits struct {
	Date       time.Time `json:"date" ch:"date"`
	Repo       string    `json:"repo" ch:"repo"`
	Author     string    `json:"author" ch:"author"`
	CommitsNum uint64    `json:"commits_num" ch:"commits_num"`
}

type AuthorCommitsKey struct {
	Date   string
	Repo   string
	Author string
}

func (a AuthorCommits) Key() AuthorCommitsKey {
	return AuthorCommitsKey{Date: a.Date.Format(time.DateOnly), Repo: a.Repo, Author: a.Author}
}
