package state

import (
	"context"
	"errors"
	"net/url"

	"github.com/mapmaker/graphcrawler/internal/crawler"
	"github.com/mapmaker/graphcrawler/internal/graph"
	"go.uber.org/zap"
)

// engineRunner adapts crawler.Engine to queue.Runner: for each task it
// builds a fresh scoped client, robots policy, and Engine — all scoped to
// exactly this one task, per §4.1/§4.2's per-task ownership rules — runs
// the traversal, and persists the resulting graph.
type engineRunner struct {
	cfg    crawler.Config
	logger *zap.Logger
}

func newEngineRunner(cfg crawler.Config, logger *zap.Logger) *engineRunner {
	return &engineRunner{cfg: cfg, logger: logger}
}

func (r *engineRunner) Run(ctx context.Context, task crawler.Task) crawler.Result {
	origin, err := url.Parse(task.URL)
	if err != nil {
		return crawler.Result{Task: task, Outcome: crawler.OutcomeFailed, Reason: "invalid start url", Err: err}
	}
	host := origin.Host

	client := crawler.WithClient(r.cfg.ClientConfig())
	defer client.Release()

	_, isHTTP2, err := crawler.PreCrawlSetup(ctx, client.HTTP, task.URL)
	if err != nil {
		if errors.Is(err, crawler.ErrSetupFailed) {
			return crawler.Result{Task: task, Host: host, Outcome: crawler.OutcomeAborted, Reason: "start url returned non-2xx", Err: err}
		}
		return crawler.Result{Task: task, Host: host, Outcome: crawler.OutcomeFailed, Reason: "pre-crawl setup failed", Err: err}
	}
	client.SetProtocol(isHTTP2)

	var robots crawler.RobotsPolicy = crawler.AllowAll()
	if r.cfg.RespectRobots {
		robots = crawler.NewRobotsPolicy(ctx, client.HTTP, origin, r.cfg.UserAgent, r.logger)
	}

	fetcher := crawler.NewCollyFetcher(client, r.cfg.UserAgent, r.logger)
	engine := crawler.NewEngine(fetcher, robots, r.cfg.UserAgent, r.logger)

	g, err := engine.BuildGraph(ctx, task)
	if err != nil {
		return crawler.Result{Task: task, Host: host, Outcome: crawler.OutcomeFailed, Reason: "traversal failed", Err: err}
	}

	compressor := task.Compressor
	if compressor == "" {
		compressor = r.cfg.DefaultCompressor
	}
	if _, err := graph.Extension(compressor); err != nil {
		return crawler.Result{Task: task, Host: host, Outcome: crawler.OutcomeFailed, Reason: "unsupported compressor", Err: err}
	}

	written, path, err := graph.Persist(g, r.cfg.GraphRoot, host, compressor)
	if err != nil {
		return crawler.Result{Task: task, Host: host, Outcome: crawler.OutcomeFailed, Reason: "persist failed", Err: err}
	}
	if written {
		r.logger.Info("crawl finished", zap.String("host", host), zap.String("path", path),
			zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))
	} else {
		r.logger.Info("crawl finished with no linkable pages; nothing persisted", zap.String("host", host))
	}

	return crawler.Result{
		Task:      task,
		Host:      host,
		Outcome:   crawler.OutcomeSucceeded,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
	}
}
