// Package replacing is an in-memory rendition of ClickHouse's ReplacingMergeTree.
//
// Inserts only append. Duplicate keys stay visible through Rows until Compact
// runs, which keeps a single row per key: the highest version, or the last
// inserted one when the table is unversioned or versions tie. Final gives the
// deduplicated view without compacting, like SELECT ... FINAL.
package replacing

import (
	"sort"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

type entry[V any] struct {
	seq uint64
	row V
}

// Table is safe for concurrent use.
type Table[K comparable, V any] struct {
	key     func(V) K
	version func(V) int64
	parts   *xsync.Map[K, []entry[V]]
	seq     atomic.Uint64
}

// NewTable returns a table where the last inserted row of a key wins.
func NewTable[K comparable, V any](key func(V) K) *Table[K, V] {
	return &Table[K, V]{key: key, parts: xsync.NewMap[K, []entry[V]]()}
}

// NewVersionedTable returns a table where the row with the greatest version wins.
func NewVersionedTable[K comparable, V any](key func(V) K, version func(V) int64) *Table[K, V] {
	t := NewTable[K, V](key)
	t.version = version
	return t
}

// Insert appends rows. Rows sharing a key with existing ones are kept until Compact.
func (t *Table[K, V]) Insert(rows ...V) {
	for _, row := range rows {
		e := entry[V]{seq: t.seq.Add(1), row: row}
		t.parts.Compute(t.key(row), func(old []entry[V], _ bool) ([]entry[V], xsync.ComputeOp) {
			// copy so slices handed out by Range are never written to
			next := make([]entry[V], len(old), len(old)+1)
			copy(next, old)
			return append(next, e), xsync.UpdateOp
		})
	}
}

// Rows returns every physical row in insert order, duplicates included.
func (t *Table[K, V]) Rows() []V {
	var all []entry[V]
	t.parts.Range(func(_ K, es []entry[V]) bool {
		all = append(all, es...)
		return true
	})
	return sortedRows(all)
}

// Final returns one row per key as Compact would leave it, without compacting.
func (t *Table[K, V]) Final() []V {
	winners := make([]entry[V], 0, t.parts.Size())
	t.parts.Range(func(_ K, es []entry[V]) bool {
		if w, ok := t.winner(es); ok {
			winners = append(winners, w)
		}
		return true
	})
	return sortedRows(winners)
}

// Get returns the surviving row for key.
func (t *Table[K, V]) Get(key K) (V, bool) {
	es, ok := t.parts.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	w, ok := t.winner(es)
	return w.row, ok
}

// Compact merges every key down to its surviving row and reports how many rows were discarded.
func (t *Table[K, V]) Compact() int {
	removed := 0
	var keys []K
	t.parts.Range(func(k K, es []entry[V]) bool {
		if len(es) > 1 {
			keys = append(keys, k)
		}
		return true
	})
	for _, k := range keys {
		t.parts.Compute(k, func(old []entry[V], loaded bool) ([]entry[V], xsync.ComputeOp) {
			if !loaded || len(old) <= 1 {
				return old, xsync.CancelOp
			}
			w, _ := t.winner(old)
			removed += len(old) - 1
			return []entry[V]{w}, xsync.UpdateOp
		})
	}
	return removed
}

// Len is the number of physical rows, duplicates included.
func (t *Table[K, V]) Len() int {
	n := 0
	t.parts.Range(func(_ K, es []entry[V]) bool {
		n += len(es)
		return true
	})
	return n
}

// Keys is the number of distinct keys.
func (t *Table[K, V]) Keys() int {
	return t.parts.Size()
}

func (t *Table[K, V]) winner(es []entry[V]) (entry[V], bool) {
	if len(es) == 0 {
		return entry[V]{}, false
	}
	best := es[0]
	for _, e := range es[1:] {
		if t.version != nil {
			bv, ev := t.version(best.row), t.version(e.row)
			if ev < bv || (ev == bv && e.seq < best.seq) {
				continue
			}
		} else if e.seq < best.seq {
			continue
		}
		best = e
	}
	return best, true
}

func sortedRows[V any](es []entry[V]) []V {
	sort.Slice(es, func(i, j int) bool { return es[i].seq < es[j].seq })
	out := make([]V, 0, len(es))
	for _, e := range es {
		out = append(out, e.row)
	}
	return out
}
