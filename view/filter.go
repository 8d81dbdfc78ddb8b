package view

import (
	"strings"
	"time"

	"csrdesk/model"

	"golang.org/x/text/cases"
)

// filterSearch keeps records where any field value contains term, ignoring case.
func filterSearch(rows []model.Record, term string) []model.Record {
	if term == "" {
		return rows
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := rows[:0:0]
	for _, r := range rows {
		for _, v := range r {
			if v == nil {
				continue
			}
			if strings.Contains(fold.String(model.Stringify(v)), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// StartOfDay and EndOfDay expand calendar-day bounds to 00:00:00.000 and 23:59:59.999.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).Add(24*time.Hour - time.Millisecond)
}

func filterDateRange(rows []model.Record, field string, dr model.DateRange, loc *time.Location) []model.Record {
	if !dr.IsSet() || field == "" {
		return rows
	}
	var start, end time.Time
	if !dr.Start.IsZero() {
		start = StartOfDay(dr.Start, loc)
	}
	if !dr.End.IsZero() {
		end = EndOfDay(dr.End, loc)
	}
	out := rows[:0:0]
	for _, r := range rows {
		t, ok := r.Time(field, loc)
		if !ok {
			continue
		}
		if !start.IsZero() && t.Before(start) {
			continue
		}
		if !end.IsZero() && t.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterColumns(rows []model.Record, filters map[string]string, spec Spec) []model.Record {
	active := activeFilters(filters, spec.FilterFields, spec.MatchAll)
	if len(active) == 0 {
		return rows
	}
	fold := cases.Fold()
	for k, v := range active {
		if !spec.ExactFilters {
			active[k] = fold.String(v)
		}
	}
	out := rows[:0:0]
	for _, r := range rows {
		if matchColumns(r, active, spec.ExactFilters, fold) {
			out = append(out, r)
		}
	}
	return out
}

func matchColumns(r model.Record, active map[string]string, exact bool, fold cases.Caser) bool {
	for field, want := range active {
		got, ok := r.String(field)
		if !ok {
			return false
		}
		if exact {
			if got != want {
				return false
			}
			continue
		}
		if !strings.Contains(fold.String(got), want) {
			return false
		}
	}
	return true
}

func activeFilters(filters map[string]string, allowed []string, matchAll string) map[string]string {
	active := make(map[string]string)
	for k, v := range filters {
		if v == "" || (matchAll != "" && v == matchAll) {
			continue
		}
		if allowed != nil && !contains(allowed, k) {
			continue
		}
		active[k] = v
	}
	return active
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
