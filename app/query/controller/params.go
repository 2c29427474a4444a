package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/canopy-network/trackx/pkg/db/campaign"
	"github.com/canopy-network/trackx/pkg/utils"
	"github.com/gorilla/mux"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var (
	errInvalidLimit    = &parseError{msg: "invalid limit"}
	errInvalidCampaign = &parseError{msg: "invalid campaign id"}
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	return min(n, maxLimit), nil
}

// parseDay reads ?date=YYYY-MM-DD, defaulting to today in UTC.
func parseDay(r *http.Request, now time.Time) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return utils.DayStart(now), nil
	}
	return campaign.ParseDay(v)
}

func parseCampaignID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errInvalidCampaign
	}
	return id, nil
}
