package view

import (
	"time"

	"csrdesk/model"
)

// GroupRecords partitions rows by key in first-seen order. Each group keeps the
// incoming order of its members, so a most-recent-first input stays that way.
func GroupRecords(rows []model.Record, key KeyFunc) []model.Group {
	index := make(map[string]int)
	var groups []model.Group
	for _, r := range rows {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, model.Group{Key: k, Representative: r})
		}
		groups[i].Members = append(groups[i].Members, r)
		groups[i].Count++
	}
	return groups
}

// ByField groups on a field value, using fallback when it is missing or blank.
func ByField(field, fallback string) KeyFunc {
	return func(r model.Record) string {
		if s := r.Text(field); s != "" {
			return s
		}
		return fallback
	}
}

// DayLabel formats a day the way the daily tables head their sections: "Jan 2-Mon".
func DayLabel(t time.Time) string {
	return t.Format("Jan 2-Mon")
}

// ByDayAndAgent groups on the calendar day of dateField plus agentField.
func ByDayAndAgent(dateField, agentField string, loc *time.Location) KeyFunc {
	return func(r model.Record) string {
		day := "Unknown"
		if t, ok := r.Time(dateField, loc); ok {
			day = DayLabel(t.In(loc))
		}
		return day + " / " + r.Text(agentField)
	}
}
