package audit

import (
	"context"
	"time"

	"github.com/mapmaker/graphcrawler/internal/eventbus"
	"go.uber.org/zap"
)

// eventSink adapts a Sink into an eventbus.Sink, forwarding Close so the
// Event Bus's shutdown also releases the underlying connection pool.
type eventSink struct {
	sink   Sink
	logger *zap.Logger
}

// NewEventSink adapts a Sink into an eventbus.Sink so it can be
// registered on the Event Bus directly, recording one entry per
// crawl_finished or crawl_failed event.
func NewEventSink(sink Sink, logger *zap.Logger) eventbus.Sink {
	return &eventSink{sink: sink, logger: logger}
}

func (s *eventSink) Consume(batch []eventbus.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, e := range batch {
		outcome := outcomeFor(e.Kind)
		if outcome == "" {
			continue
		}
		record := Record{
			Host:       e.Host,
			URL:        e.URL,
			Outcome:    outcome,
			NodeCount:  e.NodeCount,
			EdgeCount:  e.EdgeCount,
			OccurredAt: e.At,
		}
		if err := s.sink.Record(ctx, record); err != nil {
			s.logger.Warn("audit: failed to record crawl event", zap.String("host", e.Host), zap.Error(err))
		}
	}
}

func (s *eventSink) Close() {
	s.sink.Close()
}

func outcomeFor(kind eventbus.Kind) string {
	switch kind {
	case eventbus.KindCrawlFinished:
		return "succeeded"
	case eventbus.KindCrawlFailed:
		return "failed"
	default:
		return ""
	}
}
