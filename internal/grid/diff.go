package grid

import (
	"sort"
	"strconv"
)

// ChangeSet partitions the difference between two layouts. Removed ids are
// reported as decimal strings while new and modified entries carry the
// numeric id inside their placement.
type ChangeSet struct {
	NewContentPositions      []Placement `json:"newContentPositions"`
	ModifiedContentPositions []Placement `json:"modifiedContentPositions"`
	RemovedContentIDs        []string    `json:"removedContentIds"`
}

// Empty reports whether the change set carries nothing.
func (cs ChangeSet) Empty() bool {
	return len(cs.NewContentPositions) == 0 && len(cs.ModifiedContentPositions) == 0 && len(cs.RemovedContentIDs) == 0
}

// Counts returns the size of each partition.
func (cs ChangeSet) Counts() (added, modified, removed int) {
	return len(cs.NewContentPositions), len(cs.ModifiedContentPositions), len(cs.RemovedContentIDs)
}

func emptyChangeSet() ChangeSet {
	return ChangeSet{
		NewContentPositions:      []Placement{},
		ModifiedContentPositions: []Placement{},
		RemovedContentIDs:        []string{},
	}
}

// Snapshot keys placements by content id. Later duplicates overwrite earlier
// ones; the grid registry keeps ids unique so that never happens in practice.
func Snapshot(placements []Placement) map[int]Placement {
	snap := make(map[int]Placement, len(placements))
	for _, p := range placements {
		snap[p.ContentID] = p
	}
	return snap
}

// Diff compares the previous snapshot with a fresh rendering. New and
// modified placements keep the rendering's order; removed ids are sorted
// numerically. Unchanged ids are not reported.
func Diff(previous map[int]Placement, rendered []Placement) (ChangeSet, map[int]Placement) {
	next := Snapshot(rendered)
	cs := emptyChangeSet()
	seen := make(map[int]struct{}, len(next))
	for _, p := range rendered {
		if _, dup := seen[p.ContentID]; dup {
			continue
		}
		seen[p.ContentID] = struct{}{}
		current := next[p.ContentID]
		old, existed := previous[p.ContentID]
		switch {
		case !existed:
			cs.NewContentPositions = append(cs.NewContentPositions, current)
		case old != current:
			cs.ModifiedContentPositions = append(cs.ModifiedContentPositions, current)
		}
	}
	removed := make([]int, 0)
	for id := range previous {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Ints(removed)
	for _, id := range removed {
		cs.RemovedContentIDs = append(cs.RemovedContentIDs, strconv.Itoa(id))
	}
	return cs, next
}
