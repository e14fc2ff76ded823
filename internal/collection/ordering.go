package collection

import (
	"fmt"
	"sort"

	"github.com/binyominzeev/vidfaq/pkg/models"
)

// ReorderResult holds the outcome of a single-element move
type ReorderResult struct {
	// Entries is the collection in its new display order with dense positions.
	Entries []*models.VideoEntry
	// Positions maps entry id to new position for every entry whose position changed.
	Positions map[string]int
}

// Reorder moves the entry at fromIndex to toIndex and reindexes densely from 0.
// entries must be sorted by position ascending. The input slice is not modified.
// A move that is already reflected in entries yields no position changes.
func Reorder(entries []*models.VideoEntry, movedID string, fromIndex, toIndex int) (*ReorderResult, error) {
	n := len(entries)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return nil, fmt.Errorf("%w: index out of range (from=%d, to=%d, size=%d)",
			ErrReorderConflict, fromIndex, toIndex, n)
	}
	if fromIndex == toIndex {
		return nil, fmt.Errorf("%w: source and target index are both %d", ErrReorderConflict, fromIndex)
	}
	if entries[fromIndex].ID != movedID {
		if entries[toIndex].ID == movedID {
			return unchanged(entries), nil
		}
		return nil, fmt.Errorf("%w: entry at index %d is %s, not %s",
			ErrReorderConflict, fromIndex, entries[fromIndex].ID, movedID)
	}

	order := make([]*models.VideoEntry, 0, n)
	order = append(order, entries[:fromIndex]...)
	order = append(order, entries[fromIndex+1:]...)

	moved := entries[fromIndex]
	order = append(order, nil)
	copy(order[toIndex+1:], order[toIndex:])
	order[toIndex] = moved

	return densify(order), nil
}

// Reindex assigns positions 0..N-1 following the current order. It is the repair
// path after a partially persisted reorder and is always safe to run.
func Reindex(entries []*models.VideoEntry) *ReorderResult {
	return densify(entries)
}

// NextPosition returns the position for an appended entry: max+1, or 0 when empty
func NextPosition(entries []*models.VideoEntry) int {
	next := 0
	for _, e := range entries {
		if e.Position >= next {
			next = e.Position + 1
		}
	}
	return next
}

// SortByPosition sorts entries in place by ascending position
func SortByPosition(entries []*models.VideoEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
}

func densify(order []*models.VideoEntry) *ReorderResult {
	result := &ReorderResult{
		Entries:   make([]*models.VideoEntry, len(order)),
		Positions: make(map[string]int),
	}
	for i, e := range order {
		c := e.Clone()
		if c.Position != i {
			result.Positions[c.ID] = i
			c.Position = i
		}
		result.Entries[i] = c
	}
	return result
}

func unchanged(entries []*models.VideoEntry) *ReorderResult {
	result := &ReorderResult{
		Entries:   make([]*models.VideoEntry, len(entries)),
		Positions: make(map[string]int),
	}
	for i, e := range entries {
		result.Entries[i] = e.Clone()
	}
	return result
}
