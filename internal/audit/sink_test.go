package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mapmaker/graphcrawler/internal/eventbus"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

func (r *recordingSink) Record(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingSink) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func TestEventSinkRecordsOnlyTerminalOutcomes(t *testing.T) {
	t.Parallel()
	rec := &recordingSink{}
	adapter := NewEventSink(rec, zap.NewNop())

	adapter.Consume([]eventbus.Event{
		{Kind: eventbus.KindCrawlStarted, Host: "a.example"},
		{Kind: eventbus.KindCrawlFinished, Host: "b.example", At: time.Now(), NodeCount: 12, EdgeCount: 9},
		{Kind: eventbus.KindCrawlFailed, Host: "c.example", At: time.Now()},
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 2 {
		t.Fatalf("expected 2 recorded outcomes, got %d", len(rec.records))
	}
	if rec.records[0].Outcome != "succeeded" || rec.records[1].Outcome != "failed" {
		t.Fatalf("unexpected outcomes: %+v", rec.records)
	}
	if rec.records[0].NodeCount != 12 || rec.records[0].EdgeCount != 9 {
		t.Fatalf("expected node/edge counts to carry through from the event, got %+v", rec.records[0])
	}
}

func TestEventSinkCloseForwardsToUnderlyingSink(t *testing.T) {
	t.Parallel()
	rec := &recordingSink{}
	adapter := NewEventSink(rec, zap.NewNop())
	adapter.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.closed {
		t.Fatal("expected underlying sink to be closed")
	}
}

func TestNoopSinkIsInert(t *testing.T) {
	t.Parallel()
	sink := NewNoop()
	if err := sink.Record(context.Background(), Record{}); err != nil {
		t.Fatalf("expected noop Record to succeed, got %v", err)
	}
	sink.Close()
}
