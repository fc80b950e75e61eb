package watcher

import (
	"os"
	"path/filepath"

	"github.com/mapmaker/graphcrawler/internal/graph"
	"go.uber.org/zap"
)

// Cleaner implements the graph-file sweep named in §4.7 (C8): files that
// fail to decompress, or that decode to at most one node, are deleted.
type Cleaner struct {
	root   string
	logger *zap.Logger
}

// NewCleaner builds a Cleaner rooted at the graph directory.
func NewCleaner(root string, logger *zap.Logger) *Cleaner {
	return &Cleaner{root: root, logger: logger}
}

// Sweep inspects up to maxFiles graph files and deletes the ones that
// don't decompress or that have <= 1 node. It returns the number deleted.
// Files that aren't recognized graph files (wrong extension) don't count
// against the budget.
func (c *Cleaner) Sweep(maxFiles int) int {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cleaner: read graph root failed", zap.Error(err))
		}
		return 0
	}

	inspected, deleted := 0, 0
	for _, entry := range entries {
		if inspected >= maxFiles {
			break
		}
		if entry.IsDir() {
			continue
		}
		if _, ok := graph.DetectCompressor(filepath.Ext(entry.Name())); !ok {
			continue
		}
		inspected++

		path := filepath.Join(c.root, entry.Name())
		nodes, _, err := graph.Load(path)
		if err == nil && len(nodes) > 1 {
			continue
		}
		if rmErr := os.Remove(path); rmErr != nil {
			c.logger.Warn("cleaner: remove failed", zap.String("path", path), zap.Error(rmErr))
			continue
		}
		c.logger.Info("cleaner: removed graph file",
			zap.String("path", path), zap.Error(err), zap.Int("nodes", len(nodes)))
		deleted++
	}
	return deleted
}
