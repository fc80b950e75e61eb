package eventbus

import (
	"github.com/mapmaker/graphcrawler/internal/metrics"
	"go.uber.org/zap"
)

// NewLogSink returns a sink that logs one line per event at debug level,
// so a crawl's lifecycle is traceable without instrumenting the queue or
// engine directly.
func NewLogSink(logger *zap.Logger) Sink {
	return SinkFunc(func(batch []Event) {
		for _, e := range batch {
			logger.Debug("crawl event",
				zap.String("kind", string(e.Kind)),
				zap.String("host", e.Host),
				zap.String("url", e.URL),
				zap.String("status_class", e.StatusClass),
				zap.Int("bytes", e.Bytes),
				zap.Duration("duration", e.Duration),
				zap.Int("node_count", e.NodeCount),
				zap.Int("edge_count", e.EdgeCount),
			)
		}
	})
}

// NewMetricsSink returns a sink that folds crawl events into the
// Prometheus task counter, keeping ObserveTask calls out of the queue's
// hot path.
func NewMetricsSink() Sink {
	return SinkFunc(func(batch []Event) {
		for _, e := range batch {
			switch e.Kind {
			case KindCrawlFinished:
				metrics.ObserveTask("succeeded")
			case KindCrawlFailed:
				metrics.ObserveTask("failed")
			}
		}
	})
}

// RefreshFunc is called once per host that just finished crawling, so the
// Graph Info Updater (C6) can short-circuit its lazy recompute instead of
// waiting for the file's mtime to be noticed on the next sweep.
type RefreshFunc func(host string)

// NewRefreshSink returns a sink that calls refresh for every
// crawl_finished event's host.
func NewRefreshSink(refresh RefreshFunc) Sink {
	return SinkFunc(func(batch []Event) {
		for _, e := range batch {
			if e.Kind == KindCrawlFinished {
				refresh(e.Host)
			}
		}
	})
}
