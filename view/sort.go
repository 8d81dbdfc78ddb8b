package view

import (
	"sort"
	"time"

	"csrdesk/model"

	"golang.org/x/text/collate"
)

func (e *Engine) sortRows(rows []model.Record, state model.ViewState, spec Spec) {
	if state.SortKey == "" {
		if spec.DefaultSortField == "" {
			return
		}
		dir := spec.DefaultSortDirection
		if dir == "" {
			dir = model.SortDesc
		}
		sortByTime(rows, spec.DefaultSortField, dir, e.loc)
		return
	}

	// collate.Collator is not safe for concurrent use; build one per call.
	c := collate.New(e.tag)
	desc := state.SortDirection == model.SortDesc
	key := state.SortKey
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := compareValues(c, rows[i][key], rows[j][key])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// compareValues orders two strings by locale; any other combination is equal.
func compareValues(c *collate.Collator, a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0
	}
	return c.CompareString(as, bs)
}

// sortByTime orders by timestamp; unparseable values sort after valid ones.
func sortByTime(rows []model.Record, field string, dir model.SortDirection, loc *time.Location) {
	times := make(map[int]time.Time, len(rows))
	idx := make([]int, len(rows))
	for i, r := range rows {
		idx[i] = i
		if t, ok := r.Time(field, loc); ok {
			times[i] = t
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, aok := times[idx[a]]
		tb, bok := times[idx[b]]
		switch {
		case aok && !bok:
			return true
		case !aok:
			return false
		case dir == model.SortDesc:
			return ta.After(tb)
		default:
			return ta.Before(tb)
		}
	})
	sorted := make([]model.Record, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
}
