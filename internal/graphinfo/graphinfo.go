// Package graphinfo implements the Graph Info Updater (C6): a lazily
// recomputed, in-memory host → GraphInfo cache backed by the graphs
// persisted on disk by the crawl engine.
package graphinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mapmaker/graphcrawler/internal/clock"
	"github.com/mapmaker/graphcrawler/internal/graph"
	"go.uber.org/zap"
)

// GraphInfo summarizes a persisted graph for a single host.
type GraphInfo struct {
	Host          string    `json:"host"`
	NodeCount     int       `json:"node_count"`
	EdgeCount     int       `json:"edge_count"`
	TeleportNodes []string  `json:"teleport_nodes"`
	LastModified  time.Time `json:"last_modified"`
}

// Updater maintains the host → GraphInfo cache described in §4.6.
// Recomputation reads only persisted files; it never touches a graph
// still owned by an in-flight crawl task.
type Updater struct {
	root          string
	teleportCount int
	clock         clock.Clock
	logger        *zap.Logger

	mu    sync.RWMutex
	cache map[string]GraphInfo
}

// New builds an Updater rooted at the graph directory. teleportCount is
// the k passed to the degree-centrality heuristic (graph.TeleportNodes).
func New(root string, teleportCount int, clk clock.Clock, logger *zap.Logger) *Updater {
	return &Updater{
		root:          root,
		teleportCount: teleportCount,
		clock:         clk,
		logger:        logger,
		cache:         make(map[string]GraphInfo),
	}
}

// Get returns the cached info for host, if any.
func (u *Updater) Get(host string) (GraphInfo, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	info, ok := u.cache[host]
	return info, ok
}

// All returns a snapshot of every cached host's info, sorted by host, for
// the "list all graphs" API endpoint.
func (u *Updater) All() []GraphInfo {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]GraphInfo, 0, len(u.cache))
	for _, info := range u.cache {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// UpdateInfo scans the graph root and recomputes any file whose mtime is
// newer than the cached LastModified (or which isn't cached yet), up to
// maxFiles recomputations, so one sweep can't starve the rest of the
// process on a directory full of stale graphs.
func (u *Updater) UpdateInfo(maxFiles int) error {
	entries, err := os.ReadDir(u.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("graphinfo: read graph root: %w", err)
	}

	recomputed := 0
	for _, entry := range entries {
		if recomputed >= maxFiles {
			break
		}
		if entry.IsDir() {
			continue
		}
		host, ok := hostFromFilename(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(u.root, entry.Name())
		fi, err := entry.Info()
		if err != nil {
			continue
		}

		u.mu.RLock()
		cached, known := u.cache[host]
		u.mu.RUnlock()
		if known && !fi.ModTime().After(cached.LastModified) {
			continue
		}

		info, err := u.recompute(host, path, fi.ModTime())
		if err != nil {
			u.logger.Warn("graphinfo: recompute failed", zap.String("host", host), zap.Error(err))
			continue
		}
		u.mu.Lock()
		u.cache[host] = info
		u.mu.Unlock()
		recomputed++
	}
	return nil
}

// RefreshHost recomputes a single host immediately, bypassing the
// per-sweep budget. Used out-of-band when the Event Bus delivers a
// crawl_finished event, so a freshly written graph shows up without
// waiting for the next scheduled tick (§4.6 expansion).
func (u *Updater) RefreshHost(host string) error {
	path, err := findGraphFile(u.root, host)
	if err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("graphinfo: stat %s: %w", path, err)
	}
	info, err := u.recompute(host, path, fi.ModTime())
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.cache[host] = info
	u.mu.Unlock()
	return nil
}

func (u *Updater) recompute(host, path string, modTime time.Time) (GraphInfo, error) {
	nodes, edges, err := graph.Load(path)
	if err != nil {
		return GraphInfo{}, fmt.Errorf("load %s: %w", path, err)
	}

	g := graph.New()
	for _, id := range nodes {
		g.AddNode(id)
	}
	for _, e := range edges {
		g.AddEdge(e.Source, e.Target)
	}

	return GraphInfo{
		Host:          host,
		NodeCount:     g.NodeCount(),
		EdgeCount:     g.EdgeCount(),
		TeleportNodes: graph.TeleportNodes(g, u.teleportCount),
		LastModified:  modTime,
	}, nil
}

func hostFromFilename(name string) (string, bool) {
	ext := filepath.Ext(name)
	if _, ok := graph.DetectCompressor(ext); !ok {
		return "", false
	}
	return strings.TrimSuffix(name, ext), true
}

func findGraphFile(root, host string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("graphinfo: read graph root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if h, ok := hostFromFilename(entry.Name()); ok && h == host {
			return filepath.Join(root, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("graphinfo: no graph file for host %q", host)
}
