package queue

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mapmaker/graphcrawler/internal/clock/system"
	"github.com/mapmaker/graphcrawler/internal/crawler"
	"github.com/mapmaker/graphcrawler/internal/eventbus"
	"github.com/mapmaker/graphcrawler/internal/metrics"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type blockingRunner struct {
	release chan struct{}
	mu      sync.Mutex
	started []string
}

func (r *blockingRunner) Run(ctx context.Context, task crawler.Task) crawler.Result {
	r.mu.Lock()
	r.started = append(r.started, task.URL)
	r.mu.Unlock()
	select {
	case <-r.release:
	case <-ctx.Done():
		return crawler.Result{Task: task, Outcome: crawler.OutcomeAborted}
	}
	return crawler.Result{Task: task, Outcome: crawler.OutcomeSucceeded}
}

func newTestQueue(t *testing.T, cfg Config) (*Queue, *blockingRunner, *eventbus.Hub) {
	t.Helper()
	runner := &blockingRunner{release: make(chan struct{})}
	hub := eventbus.New(eventbus.DefaultConfig(), system.New(), zap.NewNop())
	q := New(cfg, runner, hub, system.New(), zap.NewNop())
	t.Cleanup(hub.Close)
	return q, runner, hub
}

func TestEnqueueRejectsDuplicateOrigin(t *testing.T) {
	t.Parallel()
	q, runner, _ := newTestQueue(t, Config{Concurrency: 1, BufferCapacity: 4, GraceShutdown: time.Second})
	defer close(runner.release)

	got, err := q.Enqueue(crawler.Task{URL: "https://example.com/"})
	if err != nil || got != Accepted {
		t.Fatalf("first enqueue: got=%v err=%v", got, err)
	}

	got, err = q.Enqueue(crawler.Task{URL: "https://example.com/other-path"})
	if err != nil || got != RejectedDuplicate {
		t.Fatalf("expected duplicate origin rejected, got=%v err=%v", got, err)
	}
}

func TestEnqueueAcceptsDistinctHostsUnderLowConcurrency(t *testing.T) {
	t.Parallel()
	q, runner, _ := newTestQueue(t, Config{Concurrency: 1, BufferCapacity: 4, GraceShutdown: time.Second})
	defer close(runner.release)

	first, _ := q.Enqueue(crawler.Task{URL: "https://a.example/"})
	second, _ := q.Enqueue(crawler.Task{URL: "https://b.example/"})
	if first != Accepted || second != Accepted {
		t.Fatalf("expected both distinct hosts accepted, got %v %v", first, second)
	}
}

func TestEnqueueRejectsFullBacklog(t *testing.T) {
	t.Parallel()
	q, runner, _ := newTestQueue(t, Config{Concurrency: 1, BufferCapacity: 1, GraceShutdown: time.Second})
	defer close(runner.release)

	if got, _ := q.Enqueue(crawler.Task{URL: "https://a.example/"}); got != Accepted {
		t.Fatalf("expected first accepted, got %v", got)
	}
	got, _ := q.Enqueue(crawler.Task{URL: "https://b.example/"})
	if got != RejectedFull {
		t.Fatalf("expected second rejected:full, got %v", got)
	}
}

func TestRunDispatchesUpToConcurrencyLimit(t *testing.T) {
	t.Parallel()
	q, runner, _ := newTestQueue(t, Config{Concurrency: 1, BufferCapacity: 4, GraceShutdown: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)
	defer cancel()

	q.Enqueue(crawler.Task{URL: "https://a.example/"})
	q.Enqueue(crawler.Task{URL: "https://b.example/"})

	deadline := time.After(time.Second)
	for {
		runner.mu.Lock()
		n := len(runner.started)
		runner.mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected at least one task to start")
		case <-time.After(time.Millisecond):
		}
	}

	runner.mu.Lock()
	started := len(runner.started)
	runner.mu.Unlock()
	if started != 1 {
		t.Fatalf("expected only 1 concurrent task with concurrency=1, got %d", started)
	}
	close(runner.release)
}

func TestShutdownWaitsThenCancelsAfterGrace(t *testing.T) {
	t.Parallel()
	q, _, _ := newTestQueue(t, Config{Concurrency: 1, BufferCapacity: 4, GraceShutdown: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)

	q.Enqueue(crawler.Task{URL: "https://a.example/"})
	time.Sleep(10 * time.Millisecond) // let the worker pick it up
	cancel()

	done := make(chan struct{})
	go func() {
		q.Shutdown(q.cfg.GraceShutdown)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return after grace period expired")
	}
}
