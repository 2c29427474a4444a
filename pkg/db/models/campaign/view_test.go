package campaign

import (
	"testing"

	"github.com/canopy-network/trackx/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewColumnsValid(t *testing.T) {
	require.NoError(t, models.ValidateColumns(ViewColumns))
	assert.Equal(t, []string{"phrase", "campaign_id", "dt", "views"}, models.ColumnsToNameList(ViewColumns))
}

func TestPhraseHourlyRowZip(t *testing.T) {
	row := PhraseHourlyRow{Phrase: "a", Hours: []uint8{5, 2, 0}, Views: []int64{5, 15, 10, 99}}
	got := row.ToPhraseHourlyViews()
	assert.Equal(t, "a", got.Phrase)
	assert.Equal(t, []HourlyViews{{Hour: 5, Views: 5}, {Hour: 2, Views: 15}, {Hour: 0, Views: 10}}, got.ViewsByHour)
}
