package model

import "time"

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// DateRange bounds are calendar days; a zero value means unbounded.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

func (d DateRange) IsSet() bool {
	return !d.Start.IsZero() || !d.End.IsZero()
}

// ViewState holds the user-controlled viewing parameters of one list screen.
type ViewState struct {
	SearchTerm    string            `json:"searchTerm"`
	DateRange     DateRange         `json:"dateRange"`
	ColumnFilters map[string]string `json:"columnFilters"`
	SortKey       string            `json:"sortKey,omitempty"`
	SortDirection SortDirection     `json:"sortDirection"`
	PageIndex     int               `json:"pageIndex"`
	PageSize      int               `json:"pageSize"`
}

// Group is one partition of a grouped view. Members keep most-recent-first order.
type Group struct {
	Key            string   `json:"key"`
	Representative Record   `json:"representative"`
	Members        []Record `json:"members"`
	Count          int      `json:"count"`
}

// DerivedView is the computed page for a ViewState.
type DerivedView struct {
	Rows         []Record           `json:"rows"`
	Groups       []Group            `json:"groups,omitempty"`
	TotalMatched int                `json:"totalMatched"`
	TotalGroups  int                `json:"totalGroups,omitempty"`
	TotalPages   int                `json:"totalPages"`
	PageIndex    int                `json:"pageIndex"`
	PageSize     int                `json:"pageSize"`
	Aggregates   map[string]float64 `json:"aggregates"`
}
