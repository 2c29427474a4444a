package repos

import (
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
)

// PositionColumns defines the schema for the repositories_positions table.
// Table: ReplacingMergeTree ORDER BY (date, repo)
var PositionColumns = []models.ColumnDef{
	{Name: "date", Type: "Date"},
	{Name: "repo", Type: "String"},
	{Name: "position", Type: "UInt32"},
}

// Position is a repo's rank in the daily stars leaderboard (1 = most starred).
type Position struct {
	Date     time.Time `json:"date" ch:"date"`
	Repo     string    `json:"repo" ch:"repo"`
	Position uint32    `json:"position" ch:"position"`
}

type PositionKey struct {
	Date string
	Repo string
}

func (p Position) Key() PositionKey {
	return PositionKey{Date: p.Date.Format(time.DateOnly), Repo: p.Repo}
}
