package eventbus

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		BufferSize:     16,
		MaxBatchEvents: 4,
		MaxBatchWait:   20 * time.Millisecond,
		SinkTimeout:    100 * time.Millisecond,
	}
}

type collectingSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (c *collectingSink) Consume(batch []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, batch...)
}

func (c *collectingSink) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *collectingSink) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestHubDeliversEmittedEvents(t *testing.T) {
	t.Parallel()

	sink := &collectingSink{}
	hub := New(testConfig(), &fakeClock{now: time.Now()}, zap.NewNop(), sink)

	hub.Emit(Event{Kind: KindCrawlStarted, Host: "example.com"})
	hub.Emit(Event{Kind: KindCrawlFinished, Host: "example.com"})

	hub.Close()

	got := sink.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 events delivered, got %d", len(got))
	}
	if !sink.closed {
		t.Fatal("expected sink to be closed")
	}
}

func TestHubEmitNeverBlocksUnderBackpressure(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.BufferSize = 1
	cfg.MaxBatchWait = time.Hour // never fires on its own within the test

	sink := &collectingSink{}
	hub := New(cfg, &fakeClock{now: time.Now()}, zap.NewNop(), sink)
	defer hub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Emit(Event{Kind: KindFetchDone})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked under backpressure")
	}
}

func TestHubRegisterAfterConstruction(t *testing.T) {
	t.Parallel()

	hub := New(testConfig(), &fakeClock{now: time.Now()}, zap.NewNop())
	sink := &collectingSink{}
	hub.Register(sink)

	hub.Emit(Event{Kind: KindCrawlStarted})
	hub.Close()

	if len(sink.snapshot()) != 1 {
		t.Fatalf("expected 1 event on late-registered sink, got %d", len(sink.snapshot()))
	}
}
