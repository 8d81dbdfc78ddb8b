package view

import (
	"csrdesk/model"
)

// NewState returns the state a list screen starts with.
func NewState(spec Spec) model.ViewState {
	return model.ViewState{
		ColumnFilters: map[string]string{},
		SortDirection: model.SortAsc,
		PageIndex:     1,
		PageSize:      spec.pageSize(),
	}
}

// The reducers below never mutate their input. Every filter or page-size
// change lands on page 1.

func WithSearch(s model.ViewState, term string) model.ViewState {
	s.SearchTerm = term
	s.PageIndex = 1
	return s
}

func WithDateRange(s model.ViewState, dr model.DateRange) model.ViewState {
	s.DateRange = dr
	s.PageIndex = 1
	return s
}

func WithFilter(s model.ViewState, field, value string) model.ViewState {
	filters := make(map[string]string, len(s.ColumnFilters)+1)
	for k, v := range s.ColumnFilters {
		filters[k] = v
	}
	if value == "" {
		delete(filters, field)
	} else {
		filters[field] = value
	}
	s.ColumnFilters = filters
	s.PageIndex = 1
	return s
}

func WithPageSize(s model.ViewState, size int) model.ViewState {
	if size > 0 {
		s.PageSize = size
	}
	s.PageIndex = 1
	return s
}

func WithPage(s model.ViewState, page int) model.ViewState {
	if page < 1 {
		page = 1
	}
	s.PageIndex = page
	return s
}

// WithSort sorts by key ascending, or flips the direction when key is already active.
func WithSort(s model.ViewState, key string) model.ViewState {
	if s.SortKey == key && s.SortDirection == model.SortAsc {
		s.SortDirection = model.SortDesc
	} else {
		s.SortDirection = model.SortAsc
	}
	s.SortKey = key
	return s
}

// Clamp pulls PageIndex back into [1, totalPages].
func Clamp(s model.ViewState, totalPages int) model.ViewState {
	if totalPages < 1 {
		totalPages = 1
	}
	if s.PageIndex > totalPages {
		s.PageIndex = totalPages
	}
	if s.PageIndex < 1 {
		s.PageIndex = 1
	}
	return s
}
