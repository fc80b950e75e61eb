// Package config loads the process-wide configuration through a layered
// scheme: built-in defaults, an optional config file, then
// CRAWLER_-prefixed environment variables, following the same
// Load-then-Validate idiom used by internal/crawler.Config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mapmaker/graphcrawler/internal/crawler"
	"github.com/mapmaker/graphcrawler/internal/graph"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ServerConfig configures the HTTP API (C10).
type ServerConfig struct {
	Addr string
}

// AuditConfig configures the optional Audit Sink (C12). An empty DSN
// disables it.
type AuditConfig struct {
	DSN string
}

// Config is the top-level, process-wide configuration.
type Config struct {
	Environment string
	Crawler     crawler.Config
	Server      ServerConfig
	Audit       AuditConfig
}

// Validate delegates to each section's own validation.
func (c Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("config: env must be set")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must be set")
	}
	if err := c.Crawler.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load builds a Config from defaults, an optional file at path (skipped
// if empty), and CRAWLER_-prefixed environment variables, in that
// precedence order (later sources win).
func Load(path string, logger *zap.Logger) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		v.OnConfigChange(func(_ fsnotify.Event) {
			logger.Info("config: file changed on disk; restart to apply")
		})
		v.WatchConfig()
	}

	cfg := Config{
		Environment: v.GetString("env"),
		Crawler: crawler.Config{
			UserAgent:         v.GetString("crawler.user_agent"),
			AcceptLanguage:    v.GetString("crawler.accept_language"),
			RespectRobots:     v.GetBool("crawler.respect_robots"),
			DefaultCrawlDepth: v.GetInt("crawler.default_crawl_depth"),
			DefaultReqLimit:   v.GetInt("crawler.default_request_limit"),
			DefaultCompressor: graph.Compressor(v.GetString("crawler.default_compressor")),
			RequestTimeout:    v.GetDuration("crawler.request_timeout"),
			GraphRoot:         v.GetString("crawler.graph_root"),
			QueueCapacity:     v.GetInt("crawler.queue_capacity"),
			SweepFilesPerTick: v.GetInt("crawler.sweep_files_per_tick"),
			SweepInterval:     v.GetDuration("crawler.sweep_interval"),
			TeleportNodeCount: v.GetInt("crawler.teleport_node_count"),
			GraceShutdown:     v.GetDuration("crawler.shutdown_grace"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		Audit: AuditConfig{
			DSN: v.GetString("audit.dsn"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("crawler.user_agent", "MapMakingCrawler/0.4.2")
	v.SetDefault("crawler.accept_language", "en, el-GR;q=0.9")
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.default_crawl_depth", 5)
	v.SetDefault("crawler.default_request_limit", 8)
	v.SetDefault("crawler.default_compressor", string(graph.Gzip))
	v.SetDefault("crawler.request_timeout", 15*time.Second)
	v.SetDefault("crawler.graph_root", "./graphs")
	v.SetDefault("crawler.queue_capacity", 4)
	v.SetDefault("crawler.sweep_files_per_tick", 20)
	v.SetDefault("crawler.sweep_interval", time.Minute)
	v.SetDefault("crawler.teleport_node_count", 5)
	v.SetDefault("crawler.shutdown_grace", 30*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("audit.dsn", "")
}
