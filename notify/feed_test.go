package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"csrdesk/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu       sync.Mutex
	records  map[model.SourceType][]model.Record
	fetchErr error
	ackErr   error
	acked    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{records: map[model.SourceType][]model.Record{}}
}

func (f *fakeSource) Fetch(_ context.Context, source model.SourceType, _ string) ([]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.records[source], nil
}

func (f *fakeSource) Acknowledge(_ context.Context, source model.SourceType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acked = append(f.acked, string(source)+"/"+id)
	return nil
}

func TestFeed_RefreshDedupes(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed(Rules, nil)
	recs := []model.Record{trackingRecord("Quotation", base)}
	now := base.Add(5 * time.Hour)

	added, err := feed.Refresh(ctx, "REF-1", model.SourceTracking, recs, now)
	require.NoError(t, err)
	assert.Len(t, added, 1)

	added, err = feed.Refresh(ctx, "REF-1", model.SourceTracking, append(recs, recs...), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, added, "re-delivered record is not new")
	assert.Len(t, feed.Items("REF-1"), 1)
	assert.Equal(t, 1, feed.Counts("REF-1")[model.SourceTracking])
	assert.Empty(t, feed.Items("REF-2"))
}

func TestFeed_AcknowledgeSuppressesFutureRefreshes(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	feed := NewFeed(Rules, nil)
	recs := []model.Record{trackingRecord("Quotation", base)}
	now := base.Add(5 * time.Hour)

	_, err := feed.Refresh(ctx, "REF-1", model.SourceTracking, recs, now)
	require.NoError(t, err)

	require.NoError(t, feed.Acknowledge(ctx, src, "REF-1", model.SourceTracking, "trk-1"))
	assert.Equal(t, []string{"tracking/trk-1"}, src.acked)
	assert.Empty(t, feed.Items("REF-1"))

	// The backing store still returns the unchanged record.
	added, err := feed.Refresh(ctx, "REF-1", model.SourceTracking, recs, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, feed.Items("REF-1"))
}

func TestFeed_AcknowledgeFailureKeepsItem(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.ackErr = errors.New("store down")
	feed := NewFeed(Rules, nil)
	_, err := feed.Refresh(ctx, "REF-1", model.SourceTracking, []model.Record{trackingRecord("Quotation", base)}, base.Add(5*time.Hour))
	require.NoError(t, err)

	err = feed.Acknowledge(ctx, src, "REF-1", model.SourceTracking, "trk-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, src.ackErr)
	assert.Len(t, feed.Items("REF-1"), 1)

	src.ackErr = nil
	require.NoError(t, feed.Acknowledge(ctx, src, "REF-1", model.SourceTracking, "trk-1"))
	assert.Empty(t, feed.Items("REF-1"))
}

func TestFeed_AcknowledgeUnknown(t *testing.T) {
	feed := NewFeed(Rules, nil)
	err := feed.Acknowledge(context.Background(), newFakeSource(), "REF-1", model.SourceWrapUp, "nope")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestFeed_StatusChangeDropsItem(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed(Rules, nil)
	rec := trackingRecord("Quotation", base)
	_, err := feed.Refresh(ctx, "REF-1", model.SourceTracking, []model.Record{rec}, base.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, feed.Items("REF-1"), 1)

	closed := rec.Clone()
	closed["TrackingStatus"] = "Closed"
	_, err = feed.Refresh(ctx, "REF-1", model.SourceTracking, []model.Record{closed}, base.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, feed.Items("REF-1"))
}

func TestPoller_FetchFailureKeepsLastSnapshot(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.records[model.SourceTracking] = []model.Record{trackingRecord("Quotation", base)}
	feed := NewFeed(Rules, nil)
	p := NewPoller(src, feed, zap.NewNop(), WithClock(func() time.Time { return base.Add(5 * time.Hour) }))

	assert.True(t, p.Watch("REF-1"))
	assert.False(t, p.Watch("REF-1"))
	require.NoError(t, p.PollAll(ctx, "REF-1"))
	require.Len(t, feed.Items("REF-1"), 1)

	src.fetchErr = errors.New("timeout")
	assert.Error(t, p.PollOwner(ctx, "REF-1", model.SourceTracking))
	assert.Len(t, feed.Items("REF-1"), 1)
}

type countingObserver struct {
	mu    sync.Mutex
	polls int
	added int
}

func (c *countingObserver) PollCompleted(model.SourceType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
}

func (c *countingObserver) NotificationsAdded(_ model.SourceType, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added += n
}

func TestPoller_PollSourceCoversWatchedOwners(t *testing.T) {
	src := newFakeSource()
	src.records[model.SourceWrapUp] = []model.Record{{
		"_id": "w1", "WrapUp": "Customer Complaint", "Status": "Endorsed",
		"createdAt": base.Format(time.RFC3339),
	}}
	feed := NewFeed(Rules, nil)
	obs := &countingObserver{}
	p := NewPoller(src, feed, zap.NewNop(),
		WithClock(func() time.Time { return base.Add(25 * time.Hour) }),
		WithObserver(obs))
	p.Watch("A")
	p.Watch("B")

	p.PollSource(context.Background(), model.SourceWrapUp)
	assert.Len(t, feed.Items("A"), 1)
	assert.Len(t, feed.Items("B"), 1)
	assert.Equal(t, 2, obs.polls)
	assert.Equal(t, 2, obs.added)

	p.Unwatch("B")
	p.PollSource(context.Background(), model.SourceWrapUp)
	assert.Equal(t, 3, obs.polls)
}

func TestPoller_StartStop(t *testing.T) {
	p := NewPoller(newFakeSource(), NewFeed(Rules, nil), zap.NewNop(),
		WithIntervals(map[model.SourceType]time.Duration{model.SourceProgress: time.Second}))
	assert.Equal(t, time.Second, p.intervals[model.SourceProgress])
	assert.Equal(t, 30*time.Second, p.intervals[model.SourceTracking])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	p.Stop()
}

func TestPoller_IdleOwnerStopsBeingPolled(t *testing.T) {
	src := newFakeSource()
	src.records[model.SourceWrapUp] = []model.Record{{
		"_id": "w1", "WrapUp": "Customer Complaint", "Status": "Endorsed",
		"createdAt": base.Format(time.RFC3339),
	}}
	feed := NewFeed(Rules, nil)
	obs := &countingObserver{}
	now := base.Add(25 * time.Hour)
	p := NewPoller(src, feed, zap.NewNop(),
		WithClock(func() time.Time { return now }),
		WithObserver(obs),
		WithIdleTimeout(time.Minute))

	require.True(t, p.Watch("A"))
	require.True(t, p.Watch("B"))
	p.PollSource(context.Background(), model.SourceWrapUp)
	assert.Equal(t, 2, obs.polls)
	require.Len(t, feed.Items("A"), 1)

	// B keeps its screen open, A goes quiet.
	now = now.Add(45 * time.Second)
	assert.False(t, p.Watch("B"))
	now = now.Add(30 * time.Second)
	p.PollSource(context.Background(), model.SourceWrapUp)
	assert.Equal(t, 3, obs.polls)
	assert.Equal(t, []string{"B"}, p.watched())
	assert.Empty(t, feed.Items("A"))
	assert.Len(t, feed.Items("B"), 1)

	now = now.Add(2 * time.Minute)
	p.PollSource(context.Background(), model.SourceWrapUp)
	assert.Equal(t, 3, obs.polls)
	assert.Empty(t, p.watched())

	assert.True(t, p.Watch("A"), "returning owner is new again")
}

func TestPoller_UnwatchForgetsFeed(t *testing.T) {
	src := newFakeSource()
	src.records[model.SourceTracking] = []model.Record{trackingRecord("Quotation", base)}
	feed := NewFeed(Rules, nil)
	p := NewPoller(src, feed, zap.NewNop(), WithClock(func() time.Time { return base.Add(5 * time.Hour) }))

	p.Watch("REF-1")
	require.NoError(t, p.PollAll(context.Background(), "REF-1"))
	require.Len(t, feed.Items("REF-1"), 1)

	p.Unwatch("REF-1")
	assert.Empty(t, feed.Items("REF-1"))
	assert.Empty(t, p.watched())
}

// gatedAckStore parks IsAcked on block once it is set.
type gatedAckStore struct {
	*MemoryAckStore
	entered chan struct{}
	block   chan struct{}
}

func (g *gatedAckStore) IsAcked(ctx context.Context, key string) (bool, error) {
	acked, err := g.MemoryAckStore.IsAcked(ctx, key)
	if g.block != nil {
		g.entered <- struct{}{}
		<-g.block
	}
	return acked, err
}

func TestFeed_AcknowledgeDuringRefreshStaysRead(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	acks := &gatedAckStore{MemoryAckStore: NewMemoryAckStore(0), entered: make(chan struct{}, 1)}
	feed := NewFeed(Rules, acks)
	recs := []model.Record{trackingRecord("Quotation", base)}
	now := base.Add(5 * time.Hour)

	_, err := feed.Refresh(ctx, "REF-1", model.SourceTracking, recs, now)
	require.NoError(t, err)
	require.Len(t, feed.Items("REF-1"), 1)

	acks.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := feed.Refresh(ctx, "REF-1", model.SourceTracking, recs, now.Add(time.Minute))
		done <- err
	}()
	<-acks.entered

	require.NoError(t, feed.Acknowledge(ctx, src, "REF-1", model.SourceTracking, "trk-1"))
	close(acks.block)
	require.NoError(t, <-done)

	assert.Empty(t, feed.Items("REF-1"))
	assert.Equal(t, 0, feed.Counts("REF-1")[model.SourceTracking])
}

func TestMemoryAckStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := base
	m := NewMemoryAckStore(time.Hour)
	m.now = func() time.Time { return now }

	require.NoError(t, m.MarkAcked(ctx, "a"))
	ok, err := m.IsAcked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(59 * time.Minute)
	ok, _ = m.IsAcked(ctx, "a")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = m.IsAcked(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.MarkAcked(ctx, "b"))
	now = now.Add(2 * time.Hour)
	require.NoError(t, m.MarkAcked(ctx, "c"))
	assert.Equal(t, 1, m.Len(), "expired keys are swept on write")
}

func TestMemoryAckStore_NoTTLKeeps(t *testing.T) {
	ctx := context.Background()
	now := base
	m := NewMemoryAckStore(0)
	m.now = func() time.Time { return now }

	require.NoError(t, m.MarkAcked(ctx, "a"))
	now = now.Add(365 * 24 * time.Hour)
	ok, err := m.IsAcked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}
