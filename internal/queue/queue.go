// Package queue implements the Task Queue (C5): a bounded, in-process,
// in-memory FIFO of crawl tasks with URL-origin deduplication and a
// worker pool bounded by a configured concurrency limit.
package queue

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mapmaker/graphcrawler/internal/clock"
	"github.com/mapmaker/graphcrawler/internal/crawler"
	"github.com/mapmaker/graphcrawler/internal/eventbus"
	"github.com/mapmaker/graphcrawler/internal/metrics"
	"go.uber.org/zap"
)

// Admission is the result of an Enqueue call.
type Admission string

const (
	Accepted          Admission = "accepted"
	RejectedDuplicate Admission = "rejected:duplicate"
	RejectedFull      Admission = "rejected:full"
)

// Runner executes one crawl task to completion. crawler.Engine (via a
// thin adapter built by the composition root) is the production Runner.
type Runner interface {
	Run(ctx context.Context, task crawler.Task) crawler.Result
}

// Config sizes the queue's backlog and worker pool.
type Config struct {
	// Concurrency is the number of crawl tasks process_queue runs at once.
	Concurrency int
	// BufferCapacity bounds the number of tasks waiting for a worker slot.
	// Sized larger than Concurrency so admitting tasks for several distinct
	// hosts doesn't spuriously reject while one host's crawl is running.
	BufferCapacity int
	// GraceShutdown is how long Shutdown waits for in-flight tasks to
	// finish before cancelling them.
	GraceShutdown time.Duration
}

// Queue is the C5 Task Queue.
type Queue struct {
	cfg    Config
	runner Runner
	bus    *eventbus.Hub
	clock  clock.Clock
	logger *zap.Logger

	tasks chan crawler.Task
	sem   chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}

	stopping atomic.Bool
	wg       sync.WaitGroup

	execMu     sync.Mutex
	execCtx    context.Context
	cancelExec context.CancelFunc
}

// New builds a Queue. Run must be called to start processing.
func New(cfg Config, runner Runner, bus *eventbus.Hub, clk clock.Clock, logger *zap.Logger) *Queue {
	execCtx, cancel := context.WithCancel(context.Background())
	return &Queue{
		cfg:        cfg,
		runner:     runner,
		bus:        bus,
		clock:      clk,
		logger:     logger,
		tasks:      make(chan crawler.Task, cfg.BufferCapacity),
		sem:        make(chan struct{}, cfg.Concurrency),
		pending:    make(map[string]struct{}),
		execCtx:    execCtx,
		cancelExec: cancel,
	}
}

// Enqueue admits task if its origin isn't already pending or in-flight and
// the backlog has room, per §4.5's enqueue contract.
func (q *Queue) Enqueue(task crawler.Task) (Admission, error) {
	key, err := originKey(task.URL)
	if err != nil {
		return "", fmt.Errorf("queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopping.Load() {
		return RejectedFull, nil
	}
	if _, dup := q.pending[key]; dup {
		metrics.ObserveTask("rejected_duplicate")
		return RejectedDuplicate, nil
	}

	select {
	case q.tasks <- task:
		q.pending[key] = struct{}{}
		metrics.ObserveTask("accepted")
		return Accepted, nil
	default:
		metrics.ObserveTask("rejected_full")
		return RejectedFull, nil
	}
}

// Run is process_queue: it pulls admitted tasks and dispatches them to
// workers until ctx is cancelled. Callers should follow a cancelled Run
// with Shutdown to drain in-flight tasks.
func (q *Queue) Run(ctx context.Context) {
	for {
		metrics.SetQueueDepth(len(q.tasks))
		select {
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			select {
			case q.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			q.wg.Add(1)
			go q.execute(task)
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops admitting new tasks and waits up to grace for in-flight
// tasks to finish, then cancels them and returns.
func (q *Queue) Shutdown(grace time.Duration) {
	q.stopping.Store(true)

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(grace):
		q.logger.Warn("queue: shutdown grace period exceeded; abandoning in-flight tasks")
		q.execMu.Lock()
		q.cancelExec()
		q.execMu.Unlock()
		<-drained
	}
}

func (q *Queue) execute(task crawler.Task) {
	defer q.wg.Done()
	defer func() { <-q.sem }()

	key, _ := originKey(task.URL)
	defer func() {
		q.mu.Lock()
		delete(q.pending, key)
		q.mu.Unlock()
	}()

	q.execMu.Lock()
	ctx := q.execCtx
	q.execMu.Unlock()

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := q.clock.Now()
	q.bus.Emit(eventbus.Event{Kind: eventbus.KindCrawlStarted, Host: key, URL: task.URL, At: start})

	result := q.runner.Run(ctx, task)

	event := eventbus.Event{
		Host:      key,
		URL:       task.URL,
		At:        q.clock.Now(),
		Duration:  q.clock.Now().Sub(start),
		NodeCount: result.NodeCount,
		EdgeCount: result.EdgeCount,
	}
	switch result.Outcome {
	case crawler.OutcomeSucceeded:
		event.Kind = eventbus.KindCrawlFinished
	default:
		event.Kind = eventbus.KindCrawlFailed
		event.StatusClass = string(result.Outcome)
	}
	q.bus.Emit(event)
}

// originKey derives the duplicate-detection identity named in §3
// ("Identity by url normalized to origin"): scheme + host, so two start
// URLs on the same site are treated as the same crawl.
func originKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q missing scheme or host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
