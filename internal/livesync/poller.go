package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/pkg/logger"
)

// DefaultInterval is the poll interval used when Config.Interval is unset.
const DefaultInterval = 15 * time.Second

// State is the poll loop state.
type State int

const (
	Stopped State = iota
	Running
	PausedHidden
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case PausedHidden:
		return "paused"
	default:
		return "stopped"
	}
}

// FetchFunc loads one page of a feed for the given filter.
type FetchFunc[T Item, F any] func(ctx context.Context, filter F) (api.Page[T], error)

// Config tunes a Poller. Zero values pick the defaults.
type Config struct {
	// Name labels the feed in logs and metrics.
	Name         string
	Interval     time.Duration
	HighlightTTL time.Duration
	Clock        clockwork.Clock
}

// Snapshot is a consistent copy of a feed's state for rendering.
type Snapshot[T Item] struct {
	State       State
	Entries     []T
	Total       int64
	New         IDSet
	LastRefresh time.Time
	// Err is the failure of the last manual fetch, cleared by any success.
	// Background failures never show up here.
	Err     error
	Version uint64
}

// IsNew reports whether id carries a new marker.
func (s Snapshot[T]) IsNew(id string) bool {
	return s.New.Has(id)
}

// Loaded reports whether at least one fetch has succeeded.
func (s Snapshot[T]) Loaded() bool {
	return !s.LastRefresh.IsZero()
}

type request[F any] struct {
	seq    uint64
	filter F
}

// Poller keeps one feed fresh. All methods are safe for concurrent use.
type Poller[T Item, F any] struct {
	name     string
	fetch    FetchFunc[T, F]
	clock    clockwork.Clock
	onChange func(Snapshot[T])

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	filter   F
	interval time.Duration
	enabled  bool
	visible  bool
	closed   bool
	state    State
	ticker   clockwork.Ticker
	stopLoop chan struct{}

	seq      Sequence
	inflight int
	failed   *request[F]

	prevIDs     IDSet
	entries     []T
	total       int64
	lastRefresh time.Time
	err         error
	version     uint64

	highlights *Highlighter

	notifyMu sync.Mutex
	notified uint64
}

// New returns a stopped, visible Poller. onChange, if set, receives a
// snapshot after every state change; snapshots are delivered in version
// order and older ones are dropped.
func New[T Item, F any](fetch FetchFunc[T, F], filter F, cfg Config, onChange func(Snapshot[T])) *Poller[T, F] {
	if cfg.Name == "" {
		cfg.Name = "feed"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller[T, F]{
		name:     cfg.Name,
		fetch:    fetch,
		clock:    cfg.Clock,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
		filter:   filter,
		interval: cfg.Interval,
		visible:  true,
	}
	p.highlights = NewHighlighter(cfg.Clock, cfg.HighlightTTL, p.highlightExpired)
	return p
}

// Start enables polling. The loop runs once the view is also visible.
func (p *Poller[T, F]) Start() {
	p.mu.Lock()
	p.enabled = true
	p.transitionLocked()
	p.mu.Unlock()
}

// Stop disables polling and cancels the timer. Fetched data is kept.
func (p *Poller[T, F]) Stop() {
	p.mu.Lock()
	p.enabled = false
	p.transitionLocked()
	p.mu.Unlock()
}

// SetVisible reports a visibility change of the view. Becoming visible while
// enabled triggers one immediate fetch and re-arms the timer. That fetch
// supersedes any fetch still running from before the pause.
func (p *Poller[T, F]) SetVisible(visible bool) {
	p.mu.Lock()
	p.visible = visible
	if p.transitionLocked() {
		p.launchLocked(p.beginLocked(p.filter))
	}
	p.mu.Unlock()
}

// SetInterval changes the poll interval, re-arming the timer if running.
func (p *Poller[T, F]) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
	if p.state == Running {
		p.disarmLocked()
		p.armLocked()
	}
}

// Interval returns the current poll interval.
func (p *Poller[T, F]) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetFilter switches the feed to a new filter and fetches it. The previous
// baseline and new markers are dropped, so the first page under the new
// filter marks nothing as new. A running timer is re-armed.
func (p *Poller[T, F]) SetFilter(ctx context.Context, filter F) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrAbandoned
	}
	p.filter = filter
	p.prevIDs = nil
	p.highlights.Retain(nil)
	if p.state == Running {
		p.disarmLocked()
		p.armLocked()
	}
	p.err = nil
	p.failed = nil
	p.version++
	// Supersedes any fetch still running under the old filter.
	req := p.beginLocked(filter)
	p.mu.Unlock()
	p.notify()

	return p.run(ctx, req, false)
}

// Filter returns the active filter.
func (p *Poller[T, F]) Filter() F {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// Refresh fetches now. Unlike background ticks, a failure is recorded in the
// snapshot and returned so the caller can offer a retry.
func (p *Poller[T, F]) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrAbandoned
	}
	req := p.beginLocked(p.filter)
	p.mu.Unlock()

	return p.run(ctx, req, false)
}

// Retry re-issues the request that last failed, with the same filter. With
// no recorded failure it behaves like Refresh.
func (p *Poller[T, F]) Retry(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrAbandoned
	}
	filter := p.filter
	if p.failed != nil {
		filter = p.failed.filter
	}
	req := p.beginLocked(filter)
	p.mu.Unlock()

	return p.run(ctx, req, false)
}

// Nudge starts one background fetch now, as if the timer had fired. It does
// nothing unless the loop is running and idle, and failures stay silent.
func (p *Poller[T, F]) Nudge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.goBackground()
}

// Close tears the feed down: the timer and all highlight timers are
// cancelled, in-flight fetches are abandoned and their results dropped.
// Close blocks until the poll goroutines have exited and no onChange call is
// running; none starts afterwards.
func (p *Poller[T, F]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cancel()
	p.transitionLocked()
	p.highlights.Close()
	p.mu.Unlock()

	p.wg.Wait()
	// A notification that took its snapshot before closed was set holds
	// notifyMu until onChange returns.
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	highlightedGauge.WithLabelValues(p.name).Set(0)
}

// State returns the poll loop state.
func (p *Poller[T, F]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a copy of the feed state.
func (p *Poller[T, F]) Snapshot() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller[T, F]) snapshotLocked() Snapshot[T] {
	entries := make([]T, len(p.entries))
	copy(entries, p.entries)
	return Snapshot[T]{
		State:       p.state,
		Entries:     entries,
		Total:       p.total,
		New:         p.highlights.Set(),
		LastRefresh: p.lastRefresh,
		Err:         p.err,
		Version:     p.version,
	}
}

// transitionLocked moves to the state implied by enabled/visible/closed and
// reports whether the move was PausedHidden -> Running.
func (p *Poller[T, F]) transitionLocked() bool {
	want := Stopped
	if p.enabled && !p.closed {
		want = PausedHidden
		if p.visible {
			want = Running
		}
	}

	prev := p.state
	if want == prev {
		return false
	}
	p.state = want
	p.version++

	if want == Running {
		p.armLocked()
	} else {
		p.disarmLocked()
	}

	logger.Debug("poll_state_changed", map[string]interface{}{
		"feed": p.name,
		"from": prev.String(),
		"to":   want.String(),
	})
	go p.notify()
	return prev == PausedHidden && want == Running
}

func (p *Poller[T, F]) armLocked() {
	stop := make(chan struct{})
	ticker := p.clock.NewTicker(p.interval)
	p.ticker = ticker
	p.stopLoop = stop

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				p.tick(stop)
			}
		}
	}()
}

func (p *Poller[T, F]) disarmLocked() {
	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	close(p.stopLoop)
	p.ticker = nil
	p.stopLoop = nil
}

// tick starts one background fetch unless the loop was torn down meanwhile
// or a fetch is already in flight.
func (p *Poller[T, F]) tick(stop <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-stop:
		return
	default:
	}
	p.goBackground()
}

// goBackground starts one background fetch unless one is already in flight.
// Callers hold p.mu.
func (p *Poller[T, F]) goBackground() {
	req, ok := p.beginBackgroundLocked()
	if !ok {
		return
	}
	p.launchLocked(req)
}

func (p *Poller[T, F]) launchLocked(req request[F]) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.run(p.ctx, req, true)
	}()
}

func (p *Poller[T, F]) beginBackgroundLocked() (request[F], bool) {
	if p.closed || p.state != Running {
		return request[F]{}, false
	}
	if p.inflight > 0 {
		skippedTicksTotal.WithLabelValues(p.name).Inc()
		return request[F]{}, false
	}
	return p.beginLocked(p.filter), true
}

func (p *Poller[T, F]) beginLocked(filter F) request[F] {
	p.inflight++
	return request[F]{seq: p.seq.Begin(), filter: filter}
}

func (p *Poller[T, F]) run(ctx context.Context, req request[F], background bool) error {
	trigger := "manual"
	if background {
		trigger = "background"
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(p.ctx, cancel)
	defer stopAfter()

	start := time.Now()
	page, err := p.fetch(fetchCtx, req.filter)
	fetchDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	now := p.clock.Now()

	p.mu.Lock()
	p.inflight--

	if p.closed {
		p.mu.Unlock()
		fetchesTotal.WithLabelValues(p.name, trigger, "abandoned").Inc()
		return api.ErrAbandoned
	}
	if !p.seq.Latest(req.seq) {
		p.mu.Unlock()
		fetchesTotal.WithLabelValues(p.name, trigger, "stale").Inc()
		logger.Debug("stale_response_dropped", map[string]interface{}{"feed": p.name, "seq": req.seq})
		return api.ErrAbandoned
	}

	if err != nil {
		fetchesTotal.WithLabelValues(p.name, trigger, "error").Inc()
		if background {
			p.mu.Unlock()
			logger.WarnErr("background_refresh_failed", err, map[string]interface{}{"feed": p.name})
			return err
		}
		p.err = err
		failed := req
		p.failed = &failed
		p.version++
		p.mu.Unlock()
		p.notify()
		return err
	}

	fetched := IDsOf(page.Items)
	fresh := Diff(p.prevIDs, page.Items)
	p.prevIDs = fetched
	p.entries = page.Items
	p.total = page.Total
	p.lastRefresh = now
	p.err = nil
	p.failed = nil

	p.highlights.Retain(fetched)
	for _, id := range fresh {
		p.highlights.Mark(id)
	}
	p.version++
	p.mu.Unlock()

	fetchesTotal.WithLabelValues(p.name, trigger, "ok").Inc()
	if len(fresh) > 0 {
		newEntriesTotal.WithLabelValues(p.name).Add(float64(len(fresh)))
		logger.Info("new_entries", map[string]interface{}{"feed": p.name, "count": len(fresh)})
	}
	highlightedGauge.WithLabelValues(p.name).Set(float64(p.highlights.Len()))
	p.notify()
	return nil
}

func (p *Poller[T, F]) highlightExpired(string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.version++
	p.mu.Unlock()
	highlightedGauge.WithLabelValues(p.name).Set(float64(p.highlights.Len()))
	p.notify()
}

// notify hands the newest snapshot to onChange, skipping versions that an
// earlier caller already delivered.
func (p *Poller[T, F]) notify() {
	if p.onChange == nil {
		return
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	if snap.Version <= p.notified {
		return
	}
	p.notified = snap.Version
	p.onChange(snap)
}
