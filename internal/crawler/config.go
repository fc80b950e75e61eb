package crawler

import (
	"fmt"
	"time"

	"github.com/mapmaker/graphcrawler/internal/graph"
)

// Config captures the crawl-wide defaults consumed by the Task Queue when
// admitting a bare URL without an explicit depth/limit/compressor override,
// and by the HTTP Client Factory (C1) for headers and timeouts. It is
// loaded from Viper by internal/config, following the same
// Load-then-Validate idiom used throughout this codebase.
type Config struct {
	UserAgent          string
	AcceptLanguage     string
	RespectRobots      bool
	DefaultCrawlDepth  int
	DefaultReqLimit    int
	DefaultCompressor  graph.Compressor
	RequestTimeout     time.Duration
	GraphRoot          string
	QueueCapacity      int
	SweepFilesPerTick  int
	SweepInterval      time.Duration
	TeleportNodeCount  int
	GraceShutdown      time.Duration
}

// Validate checks for obviously bad configuration, per §7 error kind 5.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("crawler: user_agent must be set")
	}
	if c.DefaultCrawlDepth < 0 {
		return fmt.Errorf("crawler: default_crawl_depth must be >= 0")
	}
	if c.DefaultReqLimit <= 0 {
		return fmt.Errorf("crawler: default_request_limit must be > 0")
	}
	if _, err := graph.Extension(c.DefaultCompressor); err != nil {
		return fmt.Errorf("crawler: default_compressor: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("crawler: request_timeout must be > 0")
	}
	if c.GraphRoot == "" {
		return fmt.Errorf("crawler: graph_root must be set")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("crawler: queue_capacity must be > 0")
	}
	if c.SweepFilesPerTick <= 0 {
		return fmt.Errorf("crawler: sweep_files_per_tick must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("crawler: sweep_interval must be > 0")
	}
	if c.TeleportNodeCount < 0 {
		return fmt.Errorf("crawler: teleport_node_count must be >= 0")
	}
	if c.GraceShutdown < 0 {
		return fmt.Errorf("crawler: shutdown_grace must be >= 0")
	}
	return nil
}

// ClientConfig derives the C1 client configuration from the crawl-wide
// defaults.
func (c Config) ClientConfig() ClientConfig {
	cc := DefaultClientConfig(c.UserAgent)
	cc.AcceptLanguage = c.AcceptLanguage
	cc.RequestTimeout = c.RequestTimeout
	return cc
}
