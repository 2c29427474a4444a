package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/trackx/pkg/db/models"
	campaignmodels "github.com/canopy-network/trackx/pkg/db/models/campaign"
	"go.uber.org/zap"
)

// InsertViews appends view events in a single batch.
func (db *DB) InsertViews(ctx context.Context, events []campaignmodels.ViewEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s"."%s" %s`, db.Name, campaignmodels.ViewsTableName, models.InsertColumnsSQL(campaignmodels.ViewColumns))
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare views batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, e := range events {
		if err := batch.Append(e.Phrase, e.CampaignID, e.Timestamp.UTC(), e.Views); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append view event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send views batch: %w", err)
	}

	db.Logger.Debug("Inserted view events", zap.Int("rows", len(events)))
	return nil
}

// HourlyDeltas returns, per phrase, the positive hour-over-hour increases of the view
// counter for campaignID on day (UTC), most recent hour first.
//
// Per (phrase, hour) the max counter is taken, then lagInFrame subtracts the previous
// present hour's max (0 for the first one). Non-positive increases are dropped, so a
// phrase without growth yields no row.
func (db *DB) HourlyDeltas(ctx context.Context, campaignID uint64, day time.Time) ([]campaignmodels.PhraseHourlyViews, error) {
	var rows []campaignmodels.PhraseHourlyRow
	if err := db.Select(ctx, &rows, hourlyDeltasQuery(db.Name), campaignID, day.UTC().Format(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("query hourly deltas: %w", err)
	}

	out := make([]campaignmodels.PhraseHourlyViews, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToPhraseHourlyViews())
	}
	return out, nil
}

func hourlyDeltasQuery(database string) string {
	return fmt.Sprintf(`
		SELECT
			phrase,
			arrayMap(p -> p.1, pairs) AS hours,
			arrayMap(p -> p.2, pairs) AS views
		FROM (
			SELECT
				phrase,
				arrayReverseSort(p -> p.1, groupArray((hour, delta))) AS pairs
			FROM (
				SELECT
					phrase,
					hour,
					max_views - lagInFrame(max_views, 1, toInt64(0)) OVER (
						PARTITION BY phrase
						ORDER BY hour ASC
						ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
					) AS delta
				FROM (
					SELECT
						phrase,
						toHour(dt) AS hour,
						toInt64(max(views)) AS max_views
					FROM "%s"."%s"
					WHERE campaign_id = ? AND toDate(dt) = toDate(?)
					GROUP BY phrase, hour
				)
			)
			WHERE delta > 0
			GROUP BY phrase
		)
		ORDER BY phrase ASC
	`, database, campaignmodels.ViewsTableName)
}
