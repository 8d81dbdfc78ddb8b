package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"csrdesk/model"
)

var ErrUnknownItem = errors.New("notification not found")

// AckStore remembers acknowledged dedupe keys across polls.
type AckStore interface {
	IsAcked(ctx context.Context, key string) (bool, error)
	MarkAcked(ctx context.Context, key string) error
}

// Source supplies raw records for a notification feed and persists read flags.
type Source interface {
	Fetch(ctx context.Context, source model.SourceType, owner string) ([]model.Record, error)
	Acknowledge(ctx context.Context, source model.SourceType, recordID string) error
}

// Feed holds the live notification list per owner (user ReferenceID).
// Each Refresh replaces one source's items for one owner; the last fetch wins.
type Feed struct {
	rules []model.NotificationRule
	acks  AckStore

	mu    sync.RWMutex
	items map[string]map[model.SourceType][]model.NotificationItem
	// acked holds keys acknowledged through this Feed, per owner. Refresh
	// filters against it under mu.
	acked map[string]map[string]struct{}
}

func NewFeed(rules []model.NotificationRule, acks AckStore) *Feed {
	if acks == nil {
		acks = NewMemoryAckStore(0)
	}
	return &Feed{
		rules: rules,
		acks:  acks,
		items: make(map[string]map[model.SourceType][]model.NotificationItem),
		acked: make(map[string]map[string]struct{}),
	}
}

// Refresh evaluates a freshly fetched record set and returns the items that
// were not present before this call.
func (f *Feed) Refresh(ctx context.Context, owner string, source model.SourceType, records []model.Record, now time.Time) ([]model.NotificationItem, error) {
	evaluated := EvaluateAll(records, now, f.rules, source)
	live := evaluated[:0:0]
	seen := make(map[string]bool, len(evaluated))
	for _, it := range evaluated {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		acked, err := f.acks.IsAcked(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check acknowledgement for %s: %w", it.ID, err)
		}
		if !acked {
			live = append(live, it)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	bySource, ok := f.items[owner]
	if !ok {
		bySource = make(map[model.SourceType][]model.NotificationItem)
		f.items[owner] = bySource
	}
	if acked := f.acked[owner]; len(acked) > 0 {
		kept := live[:0:0]
		for _, it := range live {
			if _, ok := acked[it.ID]; !ok {
				kept = append(kept, it)
			}
		}
		live = kept
	}
	previous := make(map[string]bool, len(bySource[source]))
	for _, it := range bySource[source] {
		previous[it.ID] = true
	}
	var added []model.NotificationItem
	for _, it := range live {
		if !previous[it.ID] {
			added = append(added, it)
		}
	}
	bySource[source] = live
	return added, nil
}

// Items returns the owner's live items across sources, most recent first.
func (f *Feed) Items(owner string) []model.NotificationItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []model.NotificationItem
	for _, items := range f.items[owner] {
		out = append(out, items...)
	}
	sortItems(out)
	return out
}

// Counts returns the badge count per source for owner.
func (f *Feed) Counts(owner string) map[model.SourceType]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := map[model.SourceType]int{
		model.SourceTracking: 0,
		model.SourceWrapUp:   0,
		model.SourceProgress: 0,
	}
	for src, items := range f.items[owner] {
		out[src] = len(items)
	}
	return out
}

// Acknowledge marks the record read at the source. Only after the source
// accepts it is the item removed and its key remembered; on failure the item
// stays eligible and the error is returned for the caller to retry or surface.
func (f *Feed) Acknowledge(ctx context.Context, src Source, owner string, source model.SourceType, recordID string) error {
	keys := f.keysFor(owner, source, recordID)
	if len(keys) == 0 {
		return ErrUnknownItem
	}
	if err := src.Acknowledge(ctx, source, recordID); err != nil {
		return fmt.Errorf("failed to acknowledge %s %s: %w", source, recordID, err)
	}
	for _, k := range keys {
		if err := f.acks.MarkAcked(ctx, k); err != nil {
			return fmt.Errorf("failed to remember acknowledgement %s: %w", k, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acked[owner] == nil {
		f.acked[owner] = make(map[string]struct{})
	}
	for _, k := range keys {
		f.acked[owner][k] = struct{}{}
	}
	items := f.items[owner][source]
	kept := items[:0:0]
	for _, it := range items {
		if it.RecordID != recordID {
			kept = append(kept, it)
		}
	}
	f.items[owner][source] = kept
	return nil
}

// Forget drops everything held for owner.
func (f *Feed) Forget(owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, owner)
	delete(f.acked, owner)
}

func (f *Feed) keysFor(owner string, source model.SourceType, recordID string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var keys []string
	for _, it := range f.items[owner][source] {
		if it.RecordID == recordID {
			keys = append(keys, it.ID)
		}
	}
	return keys
}

// MemoryAckStore is the in-process AckStore. Keys expire after ttl, like
// the Redis store; a ttl of zero keeps them for the life of the process.
type MemoryAckStore struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	keys map[string]time.Time
}

func NewMemoryAckStore(ttl time.Duration) *MemoryAckStore {
	return &MemoryAckStore{ttl: ttl, now: time.Now, keys: make(map[string]time.Time)}
}

func (m *MemoryAckStore) IsAcked(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expires, ok := m.keys[key]
	if !ok {
		return false, nil
	}
	if m.expired(expires) {
		delete(m.keys, key)
		return false, nil
	}
	return true, nil
}

func (m *MemoryAckStore) MarkAcked(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, expires := range m.keys {
		if m.expired(expires) {
			delete(m.keys, k)
		}
	}
	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	m.keys[key] = expires
	return nil
}

// Len reports how many keys are held, expired ones included until swept.
func (m *MemoryAckStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func (m *MemoryAckStore) expired(expires time.Time) bool {
	return !expires.IsZero() && !m.now().Before(expires)
}
