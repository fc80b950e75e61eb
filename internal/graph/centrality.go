package graph

import "sort"

// TeleportNodes returns the top-k node ids by degree centrality, used by
// the Graph Info Updater (C6) as the "long-range jump point" heuristic
// named in §4.6/GLOSSARY. Degree centrality is the parameterized heuristic
// this implementation picks: no graph library in the dependency corpus
// exposes betweenness centrality (see DESIGN.md), and degree is the
// cheapest measure that still identifies well-connected hub pages, which is
// the property a teleport candidate needs.
func TeleportNodes(g *Graph, k int) []string {
	if k <= 0 {
		return nil
	}
	nodes := g.Nodes()
	degrees := make(map[string]int, len(nodes))
	for _, e := range g.Edges() {
		degrees[e.Source]++
		degrees[e.Target]++
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return degrees[nodes[i]] > degrees[nodes[j]]
	})

	if k > len(nodes) {
		k = len(nodes)
	}
	out := make([]string, 0, k)
	for _, id := range nodes[:k] {
		if degrees[id] == 0 {
			break // no point flagging isolated nodes as jump targets
		}
		out = append(out, id)
	}
	return out
}
