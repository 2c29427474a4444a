package campaign

import (
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
)

const ViewsTableName = "phrases_views"

// ViewColumns defines the schema for the phrases_views table.
var ViewColumns = []models.ColumnDef{
	{Name: "phrase", Type: "String", Codec: "ZSTD(1)"},
	{Name: "campaign_id", Type: "UInt64"},
	{Name: "dt", Type: "DateTime('UTC')", Codec: "Delta, ZSTD(1)"},
	{Name: "views", Type: "UInt64", Codec: "Delta, ZSTD(1)"},
}

// ViewEvent is one observation of a phrase's cumulative view counter.
// Views is expected to grow monotonically per (phrase, campaign), nothing enforces it.
type ViewEvent struct {
	Phrase     string    `json:"phrase" ch:"phrase"`
	CampaignID uint64    `json:"campaign_id" ch:"campaign_id"`
	Timestamp  time.Time `json:"dt" ch:"dt"`
	Views      uint64    `json:"views" ch:"views"`
}

// HourlyViews is the increase of a phrase's counter during one hour of the day.
type HourlyViews struct {
	Hour  uint8 `json:"hour"`
	Views int64 `json:"views"`
}

// PhraseHourlyViews holds a phrase's positive hourly increases, most recent hour first.
type PhraseHourlyViews struct {
	Phrase      string        `json:"phrase"`
	ViewsByHour []HourlyViews `json:"views_by_hour"`
}

// PhraseHourlyRow is the raw ClickHouse shape of PhraseHourlyViews: two parallel arrays.
type PhraseHourlyRow struct {
	Phrase string  `ch:"phrase"`
	Hours  []uint8 `ch:"hours"`
	Views  []int64 `ch:"views"`
}

// ToPhraseHourlyViews zips the parallel arrays. Extra elements on either side are ignored.
func (r PhraseHourlyRow) ToPhraseHourlyViews() PhraseHourlyViews {
	n := len(r.Hours)
	if len(r.Views) < n {
		n = len(r.Views)
	}
	out := PhraseHourlyViews{Phrase: r.Phrase, ViewsByHour: make([]HourlyViews, 0, n)}
	for i := 0; i < n; i++ {
		out.ViewsByHour = append(out.ViewsByHour, HourlyViews{Hour: r.Hours[i], Views: r.Views[i]})
	}
	return out
}
