// Package monitor polls a mailbox folder in the background and hands newly
// seen messages to a consumer.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mailbuddy/internal/config"
	"mailbuddy/internal/logger"
	"mailbuddy/internal/model"
)

const (
	DefaultFolder    = "INBOX"
	DefaultBatchSize = config.DefaultBatchSize

	stopTimeout    = 5 * time.Second
	backoffSeconds = 10
	subscriberBuf  = 4
)

// Fetcher is the part of the folder manager the monitor needs.
type Fetcher interface {
	FetchRecent(folder string, limit int) ([]model.Message, error)
}

// Callback receives each non-empty batch of new messages, newest first.
// It runs on the monitor goroutine.
type Callback func([]model.Message)

// Status is a point-in-time copy of the monitor state.
type Status struct {
	Running         bool
	LastCheck       time.Time
	SeenCount       int
	IntervalSeconds int
}

type Options struct {
	Folder          string
	BatchSize       int
	IntervalSeconds int
}

// Monitor runs at most one poll loop at a time. All state is guarded by mu,
// which is never held across a fetch.
type Monitor struct {
	fetcher Fetcher
	folder  string
	batch   int
	logger  *zap.SugaredLogger

	// unit scales interval and backoff seconds; tests shrink it.
	unit     time.Duration
	stopWait time.Duration

	mu        sync.Mutex
	running   bool
	lastCheck time.Time
	seen      map[string]struct{}
	interval  int
	callback  Callback
	// pending holds subscribers registered while no loop runs; the next
	// Start hands them to its loop.
	pending []chan []model.Message
	current *loop
	// stale is the done channel of a loop that outlived Stop's grace period.
	stale chan struct{}
}

// loop is one run of the poll loop. Its subscribers belong to it alone and
// are closed when it exits.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
	subs   []chan []model.Message
}

func New(fetcher Fetcher, opts Options, log *zap.SugaredLogger) *Monitor {
	if opts.Folder == "" {
		opts.Folder = DefaultFolder
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.IntervalSeconds == 0 {
		opts.IntervalSeconds = config.DefaultIntervalSeconds
	}
	return &Monitor{
		fetcher:  fetcher,
		folder:   opts.Folder,
		batch:    opts.BatchSize,
		logger:   logger.OrNop(log),
		unit:     time.Second,
		stopWait: stopTimeout,
		seen:     make(map[string]struct{}),
		interval: config.ClampInterval(opts.IntervalSeconds),
	}
}

// Start launches the poll loop unless one is already running, or a loop
// that Stop gave up waiting for is still inside its fetch. The first check
// happens immediately. It reports whether a loop was started.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}
	if m.stale != nil {
		select {
		case <-m.stale:
			m.stale = nil
		default:
			m.logger.Warnw("previous monitor loop has not exited, not starting")
			return false
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel, done: make(chan struct{}), subs: m.pending}
	m.pending = nil
	m.running = true
	m.current = l

	go m.run(loopCtx, l)
	m.logger.Infow("monitor started", "folder", m.folder, "interval_seconds", m.interval)
	return true
}

// Stop cancels the loop and waits up to five seconds for it to exit. An
// in-flight fetch is not interrupted; a loop still running after the grace
// period blocks Start until it exits. Stop is idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	l := m.current
	m.current = nil
	m.mu.Unlock()

	if l == nil {
		return
	}
	l.cancel()

	exited := true
	select {
	case <-l.done:
	case <-time.After(m.stopWait):
		exited = false
		m.logger.Warnw("monitor loop did not exit in time", "timeout", m.stopWait)
	}

	m.mu.Lock()
	m.running = false
	if !exited {
		m.stale = l.done
	}
	m.mu.Unlock()
	m.logger.Infow("monitor stopped")
}

// CheckNow runs one fetch-and-dedup cycle and returns the messages not seen
// before, in fetch order.
func (m *Monitor) CheckNow() ([]model.Message, error) {
	fetched, err := m.fetcher.FetchRecent(m.folder, m.batch)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", m.folder, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := make([]model.Message, 0, len(fetched))
	for _, msg := range fetched {
		key := msg.DedupKey()
		if _, ok := m.seen[key]; ok {
			continue
		}
		m.seen[key] = struct{}{}
		fresh = append(fresh, msg)
	}
	m.lastCheck = time.Now()
	return fresh, nil
}

// SetCallback replaces the current callback; nil removes it.
func (m *Monitor) SetCallback(fn Callback) {
	m.mu.Lock()
	m.callback = fn
	m.mu.Unlock()
}

// Subscribe returns a channel that receives every non-empty batch of the
// running loop, or of the next one started. The loop blocks on slow
// subscribers. The channel is closed when that loop exits.
func (m *Monitor) Subscribe() <-chan []model.Message {
	ch := make(chan []model.Message, subscriberBuf)
	m.mu.Lock()
	if m.current != nil {
		m.current.subs = append(m.current.subs, ch)
	} else {
		m.pending = append(m.pending, ch)
	}
	m.mu.Unlock()
	return ch
}

// SetInterval changes the polling period, clamped to 60..1800 seconds. It
// applies from the next sleep.
func (m *Monitor) SetInterval(seconds int) {
	m.mu.Lock()
	m.interval = config.ClampInterval(seconds)
	m.mu.Unlock()
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Running:         m.running,
		LastCheck:       m.lastCheck,
		SeenCount:       len(m.seen),
		IntervalSeconds: m.interval,
	}
}

// ResetSeen forgets every seen message so later polls may redeliver them.
func (m *Monitor) ResetSeen() {
	m.mu.Lock()
	m.seen = make(map[string]struct{})
	m.mu.Unlock()
}

func (m *Monitor) run(ctx context.Context, l *loop) {
	defer close(l.done)
	defer m.closeSubscribers(l)
	defer func() {
		// Exiting without Stop, e.g. the parent context was cancelled.
		m.mu.Lock()
		if m.current == l {
			l.cancel()
			m.running = false
			m.current = nil
		}
		if m.stale == l.done {
			m.stale = nil
		}
		m.mu.Unlock()
	}()

	for {
		wait := m.intervalDuration()
		if !m.cycle(ctx, l) {
			wait = backoffSeconds * m.unit
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// cycle returns false if the cycle panicked.
func (m *Monitor) cycle(ctx context.Context, l *loop) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorw("monitor cycle panicked", "panic", r)
			ok = false
		}
	}()

	fresh, err := m.CheckNow()
	if err != nil {
		m.logger.Warnw("monitor check failed", "error", err)
		return true
	}
	if len(fresh) == 0 {
		return true
	}
	m.logger.Infow("new messages", "count", len(fresh))
	m.dispatch(ctx, l, fresh)
	return true
}

func (m *Monitor) dispatch(ctx context.Context, l *loop, batch []model.Message) {
	m.mu.Lock()
	cb := m.callback
	subs := append([]chan []model.Message(nil), l.subs...)
	m.mu.Unlock()

	if cb != nil {
		cb(batch)
	}
	for _, ch := range subs {
		out := append([]model.Message(nil), batch...)
		select {
		case ch <- out:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) intervalDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Duration(m.interval) * m.unit
}

func (m *Monitor) closeSubscribers(l *loop) {
	m.mu.Lock()
	subs := l.subs
	l.subs = nil
	m.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}
