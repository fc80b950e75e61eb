package watcher

import (
	"testing"
	"time"

	"github.com/mapmaker/graphcrawler/internal/clock/system"
	"github.com/mapmaker/graphcrawler/internal/graph"
	"github.com/mapmaker/graphcrawler/internal/graphinfo"
	"go.uber.org/zap"
)

func TestSchedulerTickRecomputesAndSweeps(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	g := graph.New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddEdge("a", "b")
	if _, _, err := graph.Persist(g, root, "example.com", graph.Gzip); err != nil {
		t.Fatalf("persist: %v", err)
	}

	cleaner := NewCleaner(root, zap.NewNop())
	info := graphinfo.New(root, 2, system.New(), zap.NewNop())
	s := New(root, time.Hour, 5, cleaner, info, zap.NewNop())

	s.tick()

	got, ok := info.Get("example.com")
	if !ok {
		t.Fatal("expected example.com to be populated by tick")
	}
	if got.NodeCount != 2 || got.EdgeCount != 1 {
		t.Fatalf("unexpected info after tick: %+v", got)
	}
}

func TestMarkDirtyIgnoresNonGraphFiles(t *testing.T) {
	t.Parallel()
	s := &Scheduler{dirty: make(map[string]struct{})}
	s.markDirty("/graphs/notes.txt")
	if len(s.drainDirty()) != 0 {
		t.Fatal("expected non-graph file to be ignored")
	}

	s.markDirty("/graphs/example.com.gz")
	dirty := s.drainDirty()
	if len(dirty) != 1 || dirty[0] != "example.com" {
		t.Fatalf("expected dirty host example.com, got %v", dirty)
	}
}
