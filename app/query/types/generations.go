package types

import (
	"context"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Generations counts invalidations per cache prefix. A load that started under an older
// generation must not write its result back into the cache.
type Generations struct {
	m *xsync.Map[string, uint64]
}

func NewGenerations() *Generations {
	return &Generations{m: xsync.NewMap[string, uint64]()}
}

// Get returns the current generation of prefix, 0 if it was never invalidated.
func (g *Generations) Get(prefix string) uint64 {
	v, _ := g.m.Load(prefix)
	return v
}

// Bump advances the generation of prefix.
func (g *Generations) Bump(prefix string) uint64 {
	v, _ := g.m.Compute(prefix, func(old uint64, _ bool) (uint64, xsync.ComputeOp) {
		return old + 1, xsync.UpdateOp
	})
	return v
}

// Invalidate fences in-flight loads under prefix, then drops the cached responses.
// The bump must come first: a load that checks its generation after writing sees the bump
// and removes its own entry, any earlier write is removed by DeletePrefix.
func (a *App) Invalidate(ctx context.Context, prefix string) {
	a.Generations.Bump(prefix)
	if a.Cache == nil {
		return
	}
	if _, err := a.Cache.DeletePrefix(ctx, prefix); err != nil {
		a.Logger.Warn("Failed to invalidate cache", zap.String("prefix", prefix), zap.Error(err))
	}
}
