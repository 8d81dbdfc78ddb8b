package view

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"csrdesk/model"
)

// FilterPrefix marks column filters in query strings: f.Status=Open.
const FilterPrefix = "f."

// StateFromQuery builds a ViewState from request parameters
// (search, start, end, sortKey, sortDir, page, pageSize, f.<field>).
func StateFromQuery(q url.Values, spec Spec, loc *time.Location) model.ViewState {
	s := NewState(spec)
	s.SearchTerm = strings.TrimSpace(q.Get("search"))
	if t, ok := model.ParseTime(q.Get("start"), loc); ok {
		s.DateRange.Start = t
	}
	if t, ok := model.ParseTime(q.Get("end"), loc); ok {
		s.DateRange.End = t
	}
	for key, vals := range q {
		if !strings.HasPrefix(key, FilterPrefix) || len(vals) == 0 {
			continue
		}
		if v := strings.TrimSpace(vals[0]); v != "" {
			s.ColumnFilters[strings.TrimPrefix(key, FilterPrefix)] = v
		}
	}
	s.SortKey = q.Get("sortKey")
	if strings.EqualFold(q.Get("sortDir"), string(model.SortDesc)) {
		s.SortDirection = model.SortDesc
	}
	if n, err := strconv.Atoi(q.Get("pageSize")); err == nil && n > 0 {
		s.PageSize = n
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		s.PageIndex = n
	}
	return s
}
