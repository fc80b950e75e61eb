// Package eventbus implements the in-process Event Bus (C11): a
// non-blocking, batching publish/subscribe hub that fans crawl lifecycle
// events out to logs, metrics, the Graph Info Updater, and the optional
// audit sink. It is grounded on the batching-hub idiom used elsewhere in
// this codebase for progress fan-out, adapted from a job-lifecycle event
// model to a crawl-lifecycle one.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mapmaker/graphcrawler/internal/clock"
	"go.uber.org/zap"
)

// Config tunes the Hub's batching behavior.
type Config struct {
	// BufferSize bounds the number of events queued before Emit starts
	// dropping. Sized generously; drops indicate sustained sink stalls,
	// not normal operation.
	BufferSize int
	// MaxBatchEvents flushes a batch early once it reaches this size.
	MaxBatchEvents int
	// MaxBatchWait flushes a partial batch after this long even if it
	// hasn't reached MaxBatchEvents.
	MaxBatchWait time.Duration
	// SinkTimeout bounds how long a single sink's Consume call may run
	// before the Hub logs a warning and moves on to the next sink.
	SinkTimeout time.Duration
}

// DefaultConfig returns sane defaults for production use.
func DefaultConfig() Config {
	return Config{
		BufferSize:     1024,
		MaxBatchEvents: 64,
		MaxBatchWait:   500 * time.Millisecond,
		SinkTimeout:    2 * time.Second,
	}
}

// Hub batches events emitted by crawl tasks and fans them out to sinks on
// a background goroutine. Emit never blocks the caller.
type Hub struct {
	cfg    Config
	clock  clock.Clock
	logger *zap.Logger

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	sinksMu sync.RWMutex
	sinks   []Sink

	droppedSinceWarn int64
	lastWarnUnix     int64 // unix nanos, accessed atomically
}

// New starts a Hub with the given sinks already registered. Close must be
// called to drain the buffer and release the background goroutine.
func New(cfg Config, clk clock.Clock, logger *zap.Logger, sinks ...Sink) *Hub {
	h := &Hub{
		cfg:    cfg,
		clock:  clk,
		logger: logger,
		events: make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
		sinks:  append([]Sink(nil), sinks...),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// Register adds a sink after construction, e.g. an optional audit sink
// wired in only when a DSN is configured.
func (h *Hub) Register(s Sink) {
	h.sinksMu.Lock()
	defer h.sinksMu.Unlock()
	h.sinks = append(h.sinks, s)
}

// Emit enqueues an event. It never blocks: under sustained backpressure it
// drops the event and logs a rate-limited warning instead.
func (h *Hub) Emit(e Event) {
	select {
	case h.events <- e:
	default:
		h.recordDrop()
	}
}

func (h *Hub) recordDrop() {
	atomic.AddInt64(&h.droppedSinceWarn, 1)
	now := h.clock.Now().UnixNano()
	last := atomic.LoadInt64(&h.lastWarnUnix)
	if time.Duration(now-last) < time.Second {
		return
	}
	if !atomic.CompareAndSwapInt64(&h.lastWarnUnix, last, now) {
		return // another goroutine just warned
	}
	h.logger.Warn("eventbus: dropping events under backpressure",
		zap.Int64("dropped_since_last_warning", atomic.SwapInt64(&h.droppedSinceWarn, 0)))
}

// Close stops the background goroutine, flushing any buffered events, and
// closes every sink.
func (h *Hub) Close() {
	close(h.done)
	h.wg.Wait()
	h.sinksMu.RLock()
	defer h.sinksMu.RUnlock()
	for _, s := range h.sinks {
		s.Close()
	}
}

func (h *Hub) run() {
	defer h.wg.Done()

	batch := make([]Event, 0, h.cfg.MaxBatchEvents)
	timer := time.NewTimer(h.cfg.MaxBatchWait)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		h.dispatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-h.events:
			batch = append(batch, e)
			if len(batch) >= h.cfg.MaxBatchEvents {
				flush()
				resetTimer(timer, h.cfg.MaxBatchWait)
			}
		case <-timer.C:
			flush()
			resetTimer(timer, h.cfg.MaxBatchWait)
		case <-h.done:
			h.drainAndFlush(&batch)
			flush()
			return
		}
	}
}

// drainAndFlush collects any events already queued (without blocking) so
// Close doesn't lose events racing the shutdown signal.
func (h *Hub) drainAndFlush(batch *[]Event) {
	for {
		select {
		case e := <-h.events:
			*batch = append(*batch, e)
		default:
			return
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (h *Hub) dispatch(batch []Event) {
	cp := append([]Event(nil), batch...)
	h.sinksMu.RLock()
	sinks := h.sinks
	h.sinksMu.RUnlock()

	for _, s := range sinks {
		done := make(chan struct{})
		go func(s Sink) {
			defer close(done)
			s.Consume(cp)
		}(s)
		select {
		case <-done:
		case <-time.After(h.cfg.SinkTimeout):
			h.logger.Warn("eventbus: sink exceeded timeout", zap.Duration("timeout", h.cfg.SinkTimeout))
		}
	}
}
