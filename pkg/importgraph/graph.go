// Package importgraph records which source files import which, keyed by
// canonical file path.
package importgraph

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

const (
	attrLabel = "label"
	attrShape = "shape"
	shapeBox  = "box"
)

// ErrUnknownFile is returned when a query names a file that was never added.
var ErrUnknownFile = errors.New("file not in import graph")

// Graph is a directed graph of source files. An edge points from a file to a
// file it imports; edge weights keep the declaration order of imports.
type Graph struct {
	inner graph.Graph[string, string]
	next  map[string]int
}

// New creates an empty import graph.
func New() *Graph {
	return &Graph{
		inner: graph.New(graph.StringHash, graph.Directed()),
		next:  make(map[string]int),
	}
}

// AddFile inserts a file node. Adding an existing file is a no-op.
func (g *Graph) AddFile(path string) error {
	err := g.inner.AddVertex(path,
		graph.VertexAttribute(attrLabel, filepath.Base(path)),
		graph.VertexAttribute(attrShape, shapeBox),
	)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("add file %s: %w", path, err)
	}

	return nil
}

// AddImport records that from imports to. Both files are added if missing.
// A repeated import of the same target keeps its first declaration position.
func (g *Graph) AddImport(from, to string) error {
	for _, path := range []string{from, to} {
		err := g.AddFile(path)
		if err != nil {
			return err
		}
	}

	err := g.inner.AddEdge(from, to, graph.EdgeWeight(g.next[from]))
	if err != nil {
		if errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil
		}

		return fmt.Errorf("add import %s -> %s: %w", from, to, err)
	}

	g.next[from]++

	return nil
}

// Files returns all files in the graph, sorted by path.
func (g *Graph) Files() []string {
	adjacency, err := g.inner.AdjacencyMap()
	if err != nil {
		return nil
	}

	files := make([]string, 0, len(adjacency))
	for path := range adjacency {
		files = append(files, path)
	}

	sort.Strings(files)

	return files
}

// Imports returns the files imported by path, in declaration order.
func (g *Graph) Imports(path string) ([]string, error) {
	adjacency, err := g.inner.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("adjacency: %w", err)
	}

	edges, ok := adjacency[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, path)
	}

	ordered := make([]graph.Edge[string], 0, len(edges))
	for _, edge := range edges {
		ordered = append(ordered, edge)
	}

	slices.SortFunc(ordered, func(a, b graph.Edge[string]) int {
		return a.Properties.Weight - b.Properties.Weight
	})

	targets := make([]string, len(ordered))
	for i, edge := range ordered {
		targets[i] = edge.Target
	}

	return targets, nil
}

// Importers returns the files that import path, sorted by path.
func (g *Graph) Importers(path string) ([]string, error) {
	predecessors, err := g.inner.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("predecessors: %w", err)
	}

	edges, ok := predecessors[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, path)
	}

	importers := make([]string, 0, len(edges))
	for source := range edges {
		importers = append(importers, source)
	}

	sort.Strings(importers)

	return importers, nil
}

// TopologicalOrder returns every file after all files it imports. Ties are
// broken by path so the result is deterministic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	order, err := graph.StableTopologicalSort(g.inner, func(a, b string) bool {
		return a > b
	})
	if err != nil {
		return nil, fmt.Errorf("topological sort: %w", err)
	}

	slices.Reverse(order)

	return order, nil
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	err := draw.DOT(g.inner, w, draw.GraphAttribute("rankdir", "BT"))
	if err != nil {
		return fmt.Errorf("render dot: %w", err)
	}

	return nil
}
