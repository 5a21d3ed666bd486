package window

import "github.com/squareup/winagg/common"

// GroupComparator detects group boundaries in a partition sorted by the group columns.
type GroupComparator struct {
	colIndexes []int
}

func NewGroupComparator(colIndexes []int) *GroupComparator {
	return &GroupComparator{colIndexes: colIndexes}
}

// NewGroup reports whether r starts a group that prev does not belong to. NULL group values equal each other.
func (g *GroupComparator) NewGroup(r common.Row, prev common.Row) bool {
	if len(g.colIndexes) == 1 {
		col := g.colIndexes[0]
		return !common.ValuesEqual(r.Value(col), prev.Value(col))
	}
	for _, col := range g.colIndexes {
		if !common.ValuesEqual(r.Value(col), prev.Value(col)) {
			return true
		}
	}
	return false
}
