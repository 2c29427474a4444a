package campaign

import (
	"context"
	"sync"
	"time"

	"github.com/canopy-network/trackx/pkg/analytics"
	campaignmodels "github.com/canopy-network/trackx/pkg/db/models/campaign"
)

// MemoryStore keeps view events in process. Used by STORE_BACKEND=memory and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []campaignmodels.ViewEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) DatabaseName() string { return "memory" }

func (m *MemoryStore) InitializeDB(context.Context) error { return nil }

func (m *MemoryStore) InsertViews(_ context.Context, events []campaignmodels.ViewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MemoryStore) HourlyDeltas(ctx context.Context, campaignID uint64, day time.Time) ([]campaignmodels.PhraseHourlyViews, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return analytics.HourlyDeltas(m.events, campaignID, day), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }
