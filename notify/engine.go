// Package notify decides which records surface as bell/sidebar notifications
// and keeps the per-user feed those decisions produce.
package notify

import (
	"sort"
	"time"

	"csrdesk/model"
)

// Decision is the outcome of evaluating one record against one rule.
type Decision struct {
	ShouldNotify bool
	State        model.EligibilityState
	Item         model.NotificationItem
}

// Evaluate is a pure function of (record, now, rule). Zone-less timestamps on
// the record are read in now's location.
func Evaluate(r model.Record, now time.Time, rule model.NotificationRule) Decision {
	if rule.Category != "" && r.Text(rule.CategoryField) != rule.Category {
		return Decision{State: model.StateIneligible}
	}
	status := r.Text(rule.StatusField)
	if rule.AnyStatus {
		if status == "" {
			return Decision{State: model.StateIneligible}
		}
	} else if status != rule.RequiredStatus {
		return Decision{State: model.StateIneligible}
	}
	if r.Text(rule.ReadField) == model.ReadValue {
		return Decision{State: model.StateAcknowledged}
	}

	from, ok := origin(r, rule, now.Location())
	if !ok || !due(from, now, rule) {
		return Decision{State: model.StatePending}
	}

	elapsed := now.Sub(from)
	days := int(elapsed / day)
	category := rule.Category
	if category == "" {
		category = r.Text("typeactivity")
	}
	return Decision{
		ShouldNotify: true,
		State:        model.StateEligible,
		Item: model.NotificationItem{
			ID:          model.DedupeKey(r.ID(), rule.Key),
			RecordID:    r.ID(),
			RuleKey:     rule.Key,
			SourceType:  rule.Source,
			CompanyName: companyName(r),
			Category:    category,
			Message:     renderMessage(rule.Message, r, rule, days),
			CreatedAt:   from,
			State:       model.StateEligible,
		},
	}
}

func origin(r model.Record, rule model.NotificationRule, loc *time.Location) (time.Time, bool) {
	for _, f := range rule.FromFields {
		if t, ok := r.Time(f, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func due(from, now time.Time, rule model.NotificationRule) bool {
	if rule.DayAligned {
		loc := now.Location()
		f := from.In(loc)
		fromDay := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		return !fromDay.After(today)
	}
	return now.Sub(from) >= rule.Threshold
}

// EvaluateAll returns the eligible items of one source, most recent first.
func EvaluateAll(records []model.Record, now time.Time, rules []model.NotificationRule, source model.SourceType) []model.NotificationItem {
	var items []model.NotificationItem
	for _, r := range records {
		for _, rule := range RulesFor(rules, source, r) {
			if d := Evaluate(r, now, rule); d.ShouldNotify {
				items = append(items, d.Item)
			}
		}
	}
	sortItems(items)
	return items
}

func sortItems(items []model.NotificationItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
