package campaign

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	campaignmodels "github.com/canopy-network/trackx/pkg/db/models/campaign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var _ Store = (*DB)(nil)
var _ Store = (*MemoryStore)(nil)

func TestParseDay(t *testing.T) {
	d, err := ParseDay(" 2025-01-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDay("01/01/2025")
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestViewsTableDDL(t *testing.T) {
	ddl := viewsTableDDL(&clickhouse.Client{}, "trackx_campaigns")
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "trackx_campaigns"."phrases_views"`)
	assert.Contains(t, ddl, "ENGINE = MergeTree")
	assert.Contains(t, ddl, "ORDER BY (campaign_id, phrase, dt)")
	assert.Contains(t, ddl, "dt DateTime('UTC')")

	clustered := viewsTableDDL(&clickhouse.Client{Cluster: "c1"}, "trackx_campaigns")
	assert.Contains(t, clustered, "ON CLUSTER c1")
	assert.Contains(t, clustered, "ENGINE = ReplicatedMergeTree")
}

func TestHourlyDeltasQueryShape(t *testing.T) {
	q := hourlyDeltasQuery("trackx_campaigns")
	assert.Contains(t, q, `FROM "trackx_campaigns"."phrases_views"`)
	assert.Contains(t, q, "lagInFrame(max_views, 1, toInt64(0))")
	assert.Contains(t, q, "WHERE delta > 0")
	assert.Equal(t, 2, strings.Count(q, "?"), "campaign id and date are the only parameters")
}

func referenceEvents() []campaignmodels.ViewEvent {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(hour int, views uint64) campaignmodels.ViewEvent {
		return campaignmodels.ViewEvent{Phrase: "a", CampaignID: 1111111, Timestamp: day.Add(time.Duration(hour)*time.Hour + 30*time.Minute), Views: views}
	}
	return []campaignmodels.ViewEvent{mk(0, 10), mk(1, 10), mk(2, 25), mk(3, 25), mk(5, 30),
		{Phrase: "flat", CampaignID: 1111111, Timestamp: day.Add(time.Hour), Views: 0}}
}

var referenceWant = []campaignmodels.PhraseHourlyViews{{
	Phrase:      "a",
	ViewsByHour: []campaignmodels.HourlyViews{{Hour: 5, Views: 5}, {Hour: 2, Views: 15}, {Hour: 0, Views: 10}},
}}

func TestMemoryStoreHourlyDeltas(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.InsertViews(ctx, referenceEvents()))

	day, _ := ParseDay("2025-01-01")
	got, err := store.HourlyDeltas(ctx, 1111111, day)
	require.NoError(t, err)
	assert.Equal(t, referenceWant, got)

	again, err := store.HourlyDeltas(ctx, 1111111, day)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

// TestClickHouseHourlyDeltas runs the SQL against a live server.
// Set CLICKHOUSE_TEST_ADDR (e.g. clickhouse://localhost:9000) to enable it.
func TestClickHouseHourlyDeltas(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_TEST_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("integration test requires CLICKHOUSE_TEST_ADDR")
	}
	t.Setenv("CLICKHOUSE_ADDR", addr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	name := clickhouse.SanitizeName("trackx_test_campaign_" + time.Now().Format("150405.000"))
	db, err := New(ctx, zaptest.NewLogger(t), name, clickhouse.GetPoolConfigForComponent("cli"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Exec(context.Background(), `DROP DATABASE IF EXISTS "`+name+`"`)
		_ = db.Close()
	})

	require.NoError(t, db.InsertViews(ctx, referenceEvents()))

	day, _ := ParseDay("2025-01-01")
	got, err := db.HourlyDeltas(ctx, 1111111, day)
	require.NoError(t, err)
	assert.Equal(t, referenceWant, got)
}
