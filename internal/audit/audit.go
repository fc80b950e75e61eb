// Package audit implements the optional Audit Sink (C12): when a
// relational DSN is configured, crawl completions are recorded for
// operational history. Absent a DSN, Sink is a no-op and has zero effect
// on crawling, queueing, or graph correctness.
package audit

import (
	"context"
	"time"
)

// Record is one crawl-completion entry (§3 AuditRecord).
type Record struct {
	Host       string
	URL        string
	Outcome    string
	NodeCount  int
	EdgeCount  int
	OccurredAt time.Time
}

// Sink persists Records. Implementations must tolerate being called from
// the Event Bus's background dispatch goroutine.
type Sink interface {
	Record(ctx context.Context, r Record) error
	Close()
}

type noopSink struct{}

func (noopSink) Record(context.Context, Record) error { return nil }
func (noopSink) Close()                                {}

// NewNoop returns the disabled-by-default sink used when no DSN is
// configured.
func NewNoop() Sink { return noopSink{} }
