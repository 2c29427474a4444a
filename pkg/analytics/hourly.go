// Package analytics computes the hourly view increases of campaign phrases in process.
//
// It mirrors the ClickHouse query in pkg/db/campaign and serves the in-memory
// backend and the tests that pin down the query's semantics.
package analytics

import (
	"sort"
	"time"

	"github.com/canopy-network/trackx/pkg/db/models/campaign"
	"github.com/canopy-network/trackx/pkg/utils"
)

// HourMax is the highest cumulative counter a phrase reached within one hour.
type HourMax struct {
	Phrase string
	Hour   uint8
	Views  uint64
}

// HourlyMaxima groups the events of campaignID on day (UTC) by (phrase, hour) and keeps the
// maximum counter per group. The result is sorted by phrase, then hour ascending.
// Hours without events are absent.
func HourlyMaxima(events []campaign.ViewEvent, campaignID uint64, day time.Time) []HourMax {
	start := utils.DayStart(day)
	end := start.Add(24 * time.Hour)

	type bucket struct {
		phrase string
		hour   uint8
	}
	maxima := make(map[bucket]uint64)
	for _, e := range events {
		if e.CampaignID != campaignID {
			continue
		}
		ts := e.Timestamp.UTC()
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		b := bucket{phrase: e.Phrase, hour: uint8(ts.Hour())}
		if cur, ok := maxima[b]; !ok || e.Views > cur {
			maxima[b] = e.Views
		}
	}

	out := make([]HourMax, 0, len(maxima))
	for b, v := range maxima {
		out = append(out, HourMax{Phrase: b.phrase, Hour: b.hour, Views: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Phrase != out[j].Phrase {
			return out[i].Phrase < out[j].Phrase
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// Deltas turns sorted hourly maxima into per-phrase increases. The first present hour of
// a phrase is compared against 0. Hours whose increase is not positive are dropped,
// including drops caused by counter resets. Phrases left with no hour are omitted.
// Phrases come out in ascending order, their hours in descending order.
func Deltas(maxima []HourMax) []campaign.PhraseHourlyViews {
	var (
		out     []campaign.PhraseHourlyViews
		current *campaign.PhraseHourlyViews
		prev    int64
	)

	flush := func() {
		if current == nil || len(current.ViewsByHour) == 0 {
			return
		}
		reverse(current.ViewsByHour)
		out = append(out, *current)
	}

	for _, m := range maxima {
		if current == nil || current.Phrase != m.Phrase {
			flush()
			current = &campaign.PhraseHourlyViews{Phrase: m.Phrase}
			prev = 0
		}
		v := int64(m.Views)
		if delta := v - prev; delta > 0 {
			current.ViewsByHour = append(current.ViewsByHour, campaign.HourlyViews{Hour: m.Hour, Views: delta})
		}
		prev = v
	}
	flush()

	return out
}

// HourlyDeltas is HourlyMaxima followed by Deltas.
func HourlyDeltas(events []campaign.ViewEvent, campaignID uint64, day time.Time) []campaign.PhraseHourlyViews {
	return Deltas(HourlyMaxima(events, campaignID, day))
}

func reverse(s []campaign.HourlyViews) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
