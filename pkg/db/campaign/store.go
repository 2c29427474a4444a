package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	campaignmodels "github.com/canopy-network/trackx/pkg/db/models/campaign"
)

// ErrInvalidDate is returned when a day argument is not formatted as YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Store exposes the view-event operations used by the query API, the CLI and tests.
type Store interface {
	DatabaseName() string
	InitializeDB(ctx context.Context) error
	InsertViews(ctx context.Context, events []campaignmodels.ViewEvent) error
	HourlyDeltas(ctx context.Context, campaignID uint64, day time.Time) ([]campaignmodels.PhraseHourlyViews, error)
	Ping(ctx context.Context) error
	Close() error
}

// ParseDay parses a YYYY-MM-DD string into midnight UTC.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}
