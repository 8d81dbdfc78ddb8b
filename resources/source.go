package resources

import (
	"context"
	"fmt"

	"csrdesk/model"
	"csrdesk/notify"
)

// DocumentStore is the part of database.Store the notification source needs.
type DocumentStore interface {
	FetchAll(ctx context.Context, resource, ownerField, owner string) ([]model.Record, error)
	SetField(ctx context.Context, resource, id, field string, value any) error
}

type feedSource struct {
	Collection string
	OwnerField string
}

// feedSources maps each notification feed to the collection it polls.
var feedSources = map[model.SourceType]feedSource{
	model.SourceTracking: {Collection: "tracking", OwnerField: "ReferenceID"},
	model.SourceWrapUp:   {Collection: "tickets", OwnerField: "ReferenceID"},
	model.SourceProgress: {Collection: "progress", OwnerField: "csragent"},
}

// NotificationSource implements notify.Source over the document store.
type NotificationSource struct {
	store DocumentStore
	rules []model.NotificationRule
}

func NewNotificationSource(store DocumentStore, rules []model.NotificationRule) *NotificationSource {
	return &NotificationSource{store: store, rules: rules}
}

var _ notify.Source = (*NotificationSource)(nil)

func (s *NotificationSource) Fetch(ctx context.Context, source model.SourceType, owner string) ([]model.Record, error) {
	fs, ok := feedSources[source]
	if !ok {
		return nil, fmt.Errorf("no collection for source %q", source)
	}
	return s.store.FetchAll(ctx, fs.Collection, fs.OwnerField, owner)
}

// Acknowledge writes "Read" into the read-flag field of the source's rules.
func (s *NotificationSource) Acknowledge(ctx context.Context, source model.SourceType, recordID string) error {
	fs, ok := feedSources[source]
	if !ok {
		return fmt.Errorf("no collection for source %q", source)
	}
	rules := notify.RulesBySource(s.rules, source)
	if len(rules) == 0 {
		return fmt.Errorf("no rules for source %q", source)
	}
	return s.store.SetField(ctx, fs.Collection, recordID, rules[0].ReadField, model.ReadValue)
}
