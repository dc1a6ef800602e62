// Package graph expands query entities over the knowledge graph.
package graph

import (
	"context"
	"sync"
)

// Store is read access to a graph keyed by entity name
type Store interface {
	HasNode(ctx context.Context, name string) (bool, error)
	Neighbors(ctx context.Context, name string) ([]string, error)
}

// MemoryGraph is an in-memory Store. Neighbors are reported in insertion order.
// It is safe for concurrent reads once loaded.
type MemoryGraph struct {
	mu        sync.RWMutex
	nodes     map[string]struct{}
	neighbors map[string][]string
	linked    map[string]map[string]struct{}
}

// NewMemoryGraph creates an empty graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes:     make(map[string]struct{}),
		neighbors: make(map[string][]string),
		linked:    make(map[string]map[string]struct{}),
	}
}

// AddNode adds a node without edges
func (g *MemoryGraph) AddNode(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[name] = struct{}{}
}

// AddEdge connects source to target. Bidirectional edges are neighbors from both ends.
// Self loops only add the node.
func (g *MemoryGraph) AddEdge(source string, target string, bidirectional bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes[source] = struct{}{}
	g.nodes[target] = struct{}{}
	if source == target {
		return
	}

	g.link(source, target)
	if bidirectional {
		g.link(target, source)
	}
}

func (g *MemoryGraph) link(from string, to string) {
	if g.linked[from] == nil {
		g.linked[from] = make(map[string]struct{})
	}
	if _, ok := g.linked[from][to]; ok {
		return
	}
	g.linked[from][to] = struct{}{}
	g.neighbors[from] = append(g.neighbors[from], to)
}

// HasNode reports whether name is a node
func (g *MemoryGraph) HasNode(_ context.Context, name string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok, nil
}

// Neighbors returns a copy of the neighbors of name
func (g *MemoryGraph) Neighbors(_ context.Context, name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.neighbors[name]))
	copy(out, g.neighbors[name])
	return out, nil
}

// NodeCount returns the number of nodes
func (g *MemoryGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
