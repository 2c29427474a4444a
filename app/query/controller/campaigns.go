package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/canopy-network/trackx/app/query/types"
	campaignmodels "github.com/canopy-network/trackx/pkg/db/models/campaign"
	"github.com/canopy-network/trackx/pkg/redis"
	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"
)

// maxIngestBody bounds POST /campaigns/{id}/views bodies.
const maxIngestBody = 8 << 20

// HandleHourlyViews returns the positive hourly view increases of every phrase of a campaign.
// Query parameters:
//   - date: YYYY-MM-DD, UTC day (default today)
func (c *Controller) HandleHourlyViews(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseCampaignID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := parseDay(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := cached(r.Context(), c, types.HourlyViewsCacheKey(campaignID, day), types.HourlyViewsCachePrefix(campaignID), "hourly_deltas",
		func(ctx context.Context) ([]campaignmodels.PhraseHourlyViews, error) {
			return c.App.CampaignDB.HourlyDeltas(ctx, campaignID, day)
		})
	if err != nil {
		c.App.Logger.Error("Hourly views query failed", zap.Uint64("campaign_id", campaignID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []campaignmodels.PhraseHourlyViews{}
	}

	writeJSON(w, http.StatusOK, dataResponse[campaignmodels.PhraseHourlyViews]{Data: rows})
}

// HandleIngestViews stores a JSON array of view events for the campaign in the path.
// The path campaign id overrides any campaign_id in the body.
func (c *Controller) HandleIngestViews(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseCampaignID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var events []campaignmodels.ViewEvent
	body := http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(body).Decode(&events); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	for i := range events {
		if events[i].Phrase == "" || events[i].Timestamp.IsZero() {
			writeError(w, http.StatusBadRequest, "every event needs phrase and dt")
			return
		}
		events[i].CampaignID = campaignID
	}

	start := time.Now()
	err = c.App.CampaignDB.InsertViews(r.Context(), events)
	c.App.Metrics.ObserveStore("insert_views", start, err)
	if err != nil {
		c.App.Logger.Error("Insert views failed", zap.Uint64("campaign_id", campaignID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "insert failed")
		return
	}

	c.App.Invalidate(r.Context(), types.HourlyViewsCachePrefix(campaignID))
	// other query instances fence their own in-flight loads
	if rc := c.App.RedisClient; rc != nil {
		rc.Publish(r.Context(), redis.ChannelViewsIngested, campaignID)
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"inserted": len(events)})
}
