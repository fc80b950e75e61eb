// Package state builds and owns the Shared State (C9): the process-wide
// handle created at startup and destroyed at shutdown, holding every
// long-lived component the HTTP API and CLI commands need.
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/mapmaker/graphcrawler/internal/audit"
	"github.com/mapmaker/graphcrawler/internal/clock"
	"github.com/mapmaker/graphcrawler/internal/clock/system"
	"github.com/mapmaker/graphcrawler/internal/config"
	"github.com/mapmaker/graphcrawler/internal/eventbus"
	"github.com/mapmaker/graphcrawler/internal/graph"
	"github.com/mapmaker/graphcrawler/internal/graphinfo"
	"github.com/mapmaker/graphcrawler/internal/queue"
	"github.com/mapmaker/graphcrawler/internal/watcher"
	"go.uber.org/zap"
)

// State is the process-wide handle. Its lifecycle is bounded by the CLI's
// PersistentPreRunE/PersistentPostRun hooks, a scoped-acquisition idiom:
// whoever calls New is responsible for calling Close.
type State struct {
	Config config.Config
	Logger *zap.Logger

	Compressor graph.Compressor
	GraphRoot  string
	Env        string
	Clock      clock.Clock

	Bus       *eventbus.Hub
	Info      *graphinfo.Updater
	Queue     *queue.Queue
	Scheduler *watcher.Scheduler
	Audit     audit.Sink
	Sessions  *SessionMap

	queueCancel context.CancelFunc
	schedCancel context.CancelFunc
}

// New builds every component named in §4.8/C9 and starts the background
// loops (Task Queue worker pool, Graph Watcher). Close must be called to
// stop them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*State, error) {
	clk := system.New()

	info := graphinfo.New(cfg.Crawler.GraphRoot, cfg.Crawler.TeleportNodeCount, clk, logger)

	bus := eventbus.New(eventbus.DefaultConfig(), clk, logger,
		eventbus.NewLogSink(logger),
		eventbus.NewMetricsSink(),
		eventbus.NewRefreshSink(func(host string) {
			if err := info.RefreshHost(host); err != nil {
				logger.Debug("state: out-of-band refresh skipped", zap.String("host", host), zap.Error(err))
			}
		}),
	)

	auditSink := audit.NewNoop()
	if cfg.Audit.DSN != "" {
		pgSink, err := audit.NewPostgres(ctx, cfg.Audit.DSN, logger)
		if err != nil {
			bus.Close()
			return nil, fmt.Errorf("state: init audit sink: %w", err)
		}
		auditSink = pgSink
		bus.Register(audit.NewEventSink(pgSink, logger))
	}

	runner := newEngineRunner(cfg.Crawler, logger)
	q := queue.New(queue.Config{
		Concurrency:    cfg.Crawler.QueueCapacity,
		BufferCapacity: cfg.Crawler.QueueCapacity * 8,
		GraceShutdown:  cfg.Crawler.GraceShutdown,
	}, runner, bus, clk, logger)

	cleaner := watcher.NewCleaner(cfg.Crawler.GraphRoot, logger)
	sched := watcher.New(cfg.Crawler.GraphRoot, cfg.Crawler.SweepInterval, cfg.Crawler.SweepFilesPerTick, cleaner, info, logger)

	s := &State{
		Config:     cfg,
		Logger:     logger,
		Compressor: cfg.Crawler.DefaultCompressor,
		GraphRoot:  cfg.Crawler.GraphRoot,
		Env:        cfg.Environment,
		Clock:      clk,
		Bus:        bus,
		Info:       info,
		Queue:      q,
		Scheduler:  sched,
		Audit:      auditSink,
		Sessions:   NewSessionMap(),
	}

	queueCtx, queueCancel := context.WithCancel(context.Background())
	s.queueCancel = queueCancel
	go q.Run(queueCtx)

	schedCtx, schedCancel := context.WithCancel(context.Background())
	s.schedCancel = schedCancel
	if err := sched.Start(schedCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("state: start watcher: %w", err)
	}

	return s, nil
}

// Close stops every background loop, in reverse dependency order, and
// releases the audit sink's connection pool.
func (s *State) Close() {
	if s.schedCancel != nil {
		s.schedCancel()
	}
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	if s.queueCancel != nil {
		s.queueCancel()
	}
	if s.Queue != nil {
		s.Queue.Shutdown(s.Config.Crawler.GraceShutdown)
	}
	if s.Bus != nil {
		s.Bus.Close() // also closes the audit sink via eventbus.Sink.Close
	}
}

// ShutdownTimeout bounds how long the serve command waits for the HTTP
// server's graceful shutdown.
const ShutdownTimeout = 45 * time.Second
