package graphinfo

import (
	"testing"
	"time"

	"github.com/mapmaker/graphcrawler/internal/graph"
	"go.uber.org/zap"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func writeGraph(t *testing.T, root, host string, nodes []string, edges [][2]string) {
	t.Helper()
	g := graph.New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	if _, _, err := graph.Persist(g, root, host, graph.Gzip); err != nil {
		t.Fatalf("persist: %v", err)
	}
}

func TestUpdateInfoRecomputesNewFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeGraph(t, root, "example.com", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})

	u := New(root, 2, fixedClock{t: time.Now()}, zap.NewNop())
	if err := u.UpdateInfo(10); err != nil {
		t.Fatalf("UpdateInfo: %v", err)
	}

	info, ok := u.Get("example.com")
	if !ok {
		t.Fatal("expected example.com to be cached")
	}
	if info.NodeCount != 3 || info.EdgeCount != 2 {
		t.Fatalf("unexpected counts: %+v", info)
	}
}

func TestUpdateInfoRespectsPerSweepBudget(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeGraph(t, root, "a.example", []string{"x", "y"}, [][2]string{{"x", "y"}})
	writeGraph(t, root, "b.example", []string{"x", "y"}, [][2]string{{"x", "y"}})

	u := New(root, 1, fixedClock{t: time.Now()}, zap.NewNop())
	if err := u.UpdateInfo(1); err != nil {
		t.Fatalf("UpdateInfo: %v", err)
	}

	if len(u.All()) != 1 {
		t.Fatalf("expected exactly 1 host recomputed under budget 1, got %d", len(u.All()))
	}
}

func TestGetMissingHost(t *testing.T) {
	t.Parallel()
	u := New(t.TempDir(), 2, fixedClock{t: time.Now()}, zap.NewNop())
	if _, ok := u.Get("nope.example"); ok {
		t.Fatal("expected missing host to report ok=false")
	}
}

func TestRefreshHostBypassesBudget(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeGraph(t, root, "fresh.example", []string{"a", "b"}, [][2]string{{"a", "b"}})

	u := New(root, 1, fixedClock{t: time.Now()}, zap.NewNop())
	if err := u.RefreshHost("fresh.example"); err != nil {
		t.Fatalf("RefreshHost: %v", err)
	}
	info, ok := u.Get("fresh.example")
	if !ok || info.NodeCount != 2 {
		t.Fatalf("expected refreshed info, got %+v ok=%v", info, ok)
	}
}
