// Package view computes paginated, filtered, sorted and aggregated list views
// from a fully materialized record set.
package view

import (
	"time"

	"csrdesk/model"

	"golang.org/x/text/language"
)

// Predicate selects the records a resource view operates on.
type Predicate func(model.Record) bool

// KeyFunc derives a group key for the grouped variant.
type KeyFunc func(model.Record) string

// Spec is the declarative, per-resource configuration consumed by Engine.
type Spec struct {
	// DateField is the timestamp the date-range filter applies to.
	DateField string
	// Category runs before search; nil keeps every record.
	Category Predicate
	// FilterFields whitelists column filter keys. Nil accepts any key.
	FilterFields []string
	// ExactFilters switches column filters to case-sensitive equality.
	ExactFilters bool
	// MatchAll is a filter value treated as "no filter", like "All" in a dropdown.
	MatchAll string
	// DefaultSortField is compared as a timestamp when no sort key is set.
	DefaultSortField     string
	DefaultSortDirection model.SortDirection
	DefaultPageSize      int
	GroupBy              KeyFunc
	Aggregates           []Aggregator
}

// Engine holds the locale and time zone used to interpret records.
// It keeps no mutable state, so one Engine can serve concurrent requests.
type Engine struct {
	loc *time.Location
	tag language.Tag
}

type Option func(*Engine)

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) { e.tag = tag }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{loc: time.Local, tag: language.English}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

var defaultEngine = NewEngine()

// Compute runs the pipeline with the default engine.
func Compute(records []model.Record, state model.ViewState, spec Spec) model.DerivedView {
	return defaultEngine.Compute(records, state, spec)
}

// Filtered returns the filtered and sorted set without pagination. Exports use it.
func (e *Engine) Filtered(records []model.Record, state model.ViewState, spec Spec) []model.Record {
	rows := make([]model.Record, 0, len(records))
	if spec.Category == nil {
		rows = append(rows, records...)
	} else {
		for _, r := range records {
			if spec.Category(r) {
				rows = append(rows, r)
			}
		}
	}
	rows = filterSearch(rows, state.SearchTerm)
	rows = filterDateRange(rows, spec.DateField, state.DateRange, e.loc)
	rows = filterColumns(rows, state.ColumnFilters, spec)
	e.sortRows(rows, state, spec)
	return rows
}

// Compute turns records and state into a DerivedView. The input slice is not
// modified and the same inputs always yield the same output.
func (e *Engine) Compute(records []model.Record, state model.ViewState, spec Spec) model.DerivedView {
	rows := e.Filtered(records, state, spec)

	pageSize := state.PageSize
	if pageSize <= 0 {
		pageSize = spec.pageSize()
	}
	pageIndex := state.PageIndex
	if pageIndex < 1 {
		pageIndex = 1
	}

	out := model.DerivedView{
		TotalMatched: len(rows),
		PageIndex:    pageIndex,
		PageSize:     pageSize,
		Aggregates:   aggregate(rows, spec.Aggregates),
	}

	if spec.GroupBy == nil {
		out.Rows = Page(rows, pageIndex, pageSize)
		out.TotalPages = TotalPages(len(rows), pageSize)
		return out
	}

	groups := GroupRecords(rows, spec.GroupBy)
	out.TotalGroups = len(groups)
	out.TotalPages = TotalPages(len(groups), pageSize)
	out.Groups = Page(groups, pageIndex, pageSize)
	out.Rows = make([]model.Record, 0, len(out.Groups))
	for _, g := range out.Groups {
		out.Rows = append(out.Rows, g.Representative)
	}
	return out
}

func (s Spec) pageSize() int {
	if s.DefaultPageSize > 0 {
		return s.DefaultPageSize
	}
	return DefaultPageSize
}
