package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"csrdesk/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultIntervals are the observed refresh cadences of each feed.
var DefaultIntervals = map[model.SourceType]time.Duration{
	model.SourceProgress: 10 * time.Second,
	model.SourceTracking: 30 * time.Second,
	model.SourceWrapUp:   30 * time.Second,
}

// DefaultIdleTimeout is how long an owner stays watched without a request.
const DefaultIdleTimeout = 5 * time.Minute

// Observer receives poll outcomes. The metrics collector implements it.
type Observer interface {
	PollCompleted(source model.SourceType, err error)
	NotificationsAdded(source model.SourceType, n int)
}

type nopObserver struct{}

func (nopObserver) PollCompleted(model.SourceType, error)  {}
func (nopObserver) NotificationsAdded(model.SourceType, int) {}

// Poller refreshes the Feed of every watched owner on a per-source schedule.
type Poller struct {
	src       Source
	feed      *Feed
	logger    *zap.Logger
	observer  Observer
	now       func() time.Time
	intervals map[model.SourceType]time.Duration
	idle      time.Duration

	cron *cron.Cron

	mu sync.RWMutex
	// owners maps each watched owner to the time it was last seen.
	owners map[string]time.Time
}

type PollerOption func(*Poller)

func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

func WithObserver(o Observer) PollerOption {
	return func(p *Poller) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithIdleTimeout sets how long an owner may go without calling Watch before
// polling for it stops.
func WithIdleTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.idle = d
		}
	}
}

// WithIntervals overrides the cadence of the given sources.
func WithIntervals(intervals map[model.SourceType]time.Duration) PollerOption {
	return func(p *Poller) {
		for src, d := range intervals {
			if d > 0 {
				p.intervals[src] = d
			}
		}
	}
}

func NewPoller(src Source, feed *Feed, logger *zap.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		src:       src,
		feed:      feed,
		logger:    logger,
		observer:  nopObserver{},
		now:       time.Now,
		intervals: make(map[model.SourceType]time.Duration, len(DefaultIntervals)),
		idle:      DefaultIdleTimeout,
		owners:    make(map[string]time.Time),
	}
	for k, v := range DefaultIntervals {
		p.intervals[k] = v
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Watch adds an owner to every subsequent poll, or marks a watched owner as
// seen now. It reports whether the owner is new.
func (p *Poller) Watch(owner string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.owners[owner]
	p.owners[owner] = p.now()
	return !ok
}

// Unwatch stops polling for owner and drops its feed.
func (p *Poller) Unwatch(owner string) {
	p.mu.Lock()
	delete(p.owners, owner)
	p.mu.Unlock()
	p.feed.Forget(owner)
}

// evictIdle unwatches every owner not seen within the idle timeout.
func (p *Poller) evictIdle() {
	cutoff := p.now().Add(-p.idle)
	var idle []string
	p.mu.Lock()
	for o, seen := range p.owners {
		if seen.Before(cutoff) {
			delete(p.owners, o)
			idle = append(idle, o)
		}
	}
	p.mu.Unlock()

	for _, o := range idle {
		p.feed.Forget(o)
		p.logger.Debug("Stopped polling idle owner", zap.String("owner", o))
	}
}

func (p *Poller) watched() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.owners))
	for o := range p.owners {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Start schedules one job per source. Jobs run until Stop.
func (p *Poller) Start(ctx context.Context) error {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	for src, every := range p.intervals {
		src := src
		spec := fmt.Sprintf("@every %s", every)
		if _, err := c.AddFunc(spec, func() { p.PollSource(ctx, src) }); err != nil {
			return fmt.Errorf("failed to schedule %s poll: %w", src, err)
		}
		p.logger.Info("Scheduled notification poll", zap.String("source", string(src)), zap.Duration("every", every))
	}
	p.cron = c
	c.Start()
	return nil
}

// Stop cancels scheduling and waits for running polls to finish.
func (p *Poller) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
	p.logger.Info("Notification poller stopped")
}

// PollSource refreshes one source for every watched owner. Idle owners are
// dropped first.
func (p *Poller) PollSource(ctx context.Context, source model.SourceType) {
	p.evictIdle()
	for _, owner := range p.watched() {
		if ctx.Err() != nil {
			return
		}
		if err := p.PollOwner(ctx, owner, source); err != nil {
			p.logger.Warn("Notification poll failed",
				zap.String("source", string(source)),
				zap.String("owner", owner),
				zap.Error(err))
		}
	}
}

// PollOwner fetches and evaluates one source for one owner. A failed fetch
// leaves the previously held items untouched.
func (p *Poller) PollOwner(ctx context.Context, owner string, source model.SourceType) error {
	records, err := p.src.Fetch(ctx, source, owner)
	if err != nil {
		p.observer.PollCompleted(source, err)
		return fmt.Errorf("failed to fetch %s records: %w", source, err)
	}
	added, err := p.feed.Refresh(ctx, owner, source, records, p.now())
	p.observer.PollCompleted(source, err)
	if err != nil {
		return err
	}
	if len(added) > 0 {
		p.observer.NotificationsAdded(source, len(added))
		p.logger.Debug("New notifications",
			zap.String("source", string(source)),
			zap.String("owner", owner),
			zap.Int("count", len(added)))
	}
	return nil
}

// PollAll refreshes every source for one owner, returning the first error.
func (p *Poller) PollAll(ctx context.Context, owner string) error {
	var first error
	for _, src := range []model.SourceType{model.SourceTracking, model.SourceWrapUp, model.SourceProgress} {
		if err := p.PollOwner(ctx, owner, src); err != nil && first == nil {
			first = err
		}
	}
	return first
}
