package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// document is the on-disk shape mandated by §4.4/§6, matching NetworkX's
// node_link_data format so downstream tooling built against that ecosystem
// can read these files unmodified.
type document struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []nodeRecord   `json:"nodes"`
	Edges      []Edge         `json:"edges"`
}

type nodeRecord struct {
	ID string `json:"id"`
}

// Encode renders g into the document format as JSON.
func Encode(g *Graph) ([]byte, error) {
	doc := document{
		Directed:   false,
		Multigraph: false,
		Graph:      map[string]any{},
		Nodes:      make([]nodeRecord, 0, g.NodeCount()),
		Edges:      g.Edges(),
	}
	for _, id := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, nodeRecord{ID: id})
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("graph: encode: %w", err)
	}
	return out, nil
}

// Decode parses the document format back into node ids and edges. It does
// not reconstruct a *Graph directly since callers (the Info Updater, the
// Cleaner) only need counts and adjacency, not a mutable graph.
func Decode(r io.Reader) (nodes []string, edges []Edge, err error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("graph: decode: %w", err)
	}
	nodes = make([]string, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes = append(nodes, n.ID)
	}
	return nodes, doc.Edges, nil
}

// PathFor returns the on-disk path for a host under root, per §6: one file
// per host, path "${GRAPH_ROOT}/${host}${ext}".
func PathFor(root, host string, c Compressor) (string, error) {
	ext, err := Extension(c)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, host+ext), nil
}

// Persist writes g to root/<host><ext>, compressed with c. It returns
// (false, nil) without writing anything when the node count is <= 1, per
// §4.3's compress_graph contract. The write is atomic: content lands in a
// temp file in the same directory first, then is renamed into place, so a
// reader never observes a partially-written graph.
func Persist(g *Graph, root, host string, c Compressor) (written bool, path string, err error) {
	if g.NodeCount() <= 1 {
		return false, "", nil
	}
	path, err = PathFor(root, host, c)
	if err != nil {
		return false, "", err
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return false, "", fmt.Errorf("graph: create graph root: %w", err)
	}

	payload, err := Encode(g)
	if err != nil {
		return false, "", err
	}

	tmp, err := os.CreateTemp(root, ".graph-*.tmp")
	if err != nil {
		return false, "", fmt.Errorf("graph: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	compressor, err := Wrap(c, tmp)
	if err != nil {
		_ = tmp.Close()
		return false, "", err
	}
	if _, err := compressor.Write(payload); err != nil {
		_ = compressor.Close()
		_ = tmp.Close()
		return false, "", fmt.Errorf("graph: compress: %w", err)
	}
	if err := compressor.Close(); err != nil {
		_ = tmp.Close()
		return false, "", fmt.Errorf("graph: finalize compression: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, "", fmt.Errorf("graph: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return false, "", fmt.Errorf("graph: rename into place: %w", err)
	}
	return true, path, nil
}

// Load reads and decompresses the graph file at path, inferring its
// compressor from the file extension.
func Load(path string) (nodes []string, edges []Edge, err error) {
	c, ok := DetectCompressor(filepath.Ext(path))
	if !ok {
		return nil, nil, fmt.Errorf("graph: unrecognized extension for %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("graph: open %s: %w", path, err)
	}
	defer f.Close()

	reader, err := Reader(c, f)
	if err != nil {
		return nil, nil, fmt.Errorf("graph: decompress %s: %w", path, err)
	}
	defer reader.Close()

	return Decode(reader)
}
