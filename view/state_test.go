package view

import (
	"net/url"
	"testing"
	"time"

	"csrdesk/model"

	"github.com/stretchr/testify/assert"
)

func TestReducersResetPage(t *testing.T) {
	base := WithPage(NewState(Spec{DefaultPageSize: 20}), 4)
	assert.Equal(t, 20, base.PageSize)

	tests := []struct {
		name string
		next model.ViewState
	}{
		{"search", WithSearch(base, "x")},
		{"filter", WithFilter(base, "Status", "Open")},
		{"date range", WithDateRange(base, model.DateRange{Start: time.Now()})},
		{"page size", WithPageSize(base, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 1, tt.next.PageIndex)
		})
	}
	assert.Equal(t, 4, WithSort(base, "Status").PageIndex)
}

func TestWithFilterCopiesMap(t *testing.T) {
	base := WithFilter(NewState(Spec{}), "Status", "Open")
	next := WithFilter(base, "Channel", "Email")
	assert.Len(t, base.ColumnFilters, 1)
	assert.Len(t, next.ColumnFilters, 2)

	cleared := WithFilter(next, "Status", "")
	assert.NotContains(t, cleared.ColumnFilters, "Status")
}

func TestStateFromQuery(t *testing.T) {
	q := url.Values{
		"search":   {" acme "},
		"start":    {"2024-01-05"},
		"end":      {"bogus"},
		"f.Status": {"Open"},
		"f.Empty":  {""},
		"sortKey":  {"CompanyName"},
		"sortDir":  {"DESC"},
		"page":     {"3"},
		"pageSize": {"50"},
	}
	s := StateFromQuery(q, Spec{}, time.UTC)
	assert.Equal(t, "acme", s.SearchTerm)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), s.DateRange.Start)
	assert.True(t, s.DateRange.End.IsZero())
	assert.Equal(t, map[string]string{"Status": "Open"}, s.ColumnFilters)
	assert.Equal(t, "CompanyName", s.SortKey)
	assert.Equal(t, model.SortDesc, s.SortDirection)
	assert.Equal(t, 3, s.PageIndex)
	assert.Equal(t, 50, s.PageSize)
}

func TestTotalPagesAndPage(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, []int{3, 4}, Page([]int{1, 2, 3, 4, 5}, 2, 2))
	assert.Equal(t, []int{5}, Page([]int{1, 2, 3, 4, 5}, 3, 2))
	assert.Nil(t, Page([]int{1, 2, 3}, 5, 2))
}
