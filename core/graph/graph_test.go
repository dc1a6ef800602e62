package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every call
type failingStore struct{}

func (failingStore) HasNode(context.Context, string) (bool, error) {
	return false, errors.New("graph unavailable")
}

func (failingStore) Neighbors(context.Context, string) ([]string, error) {
	return nil, errors.New("graph unavailable")
}

func newDeviceGraph() *MemoryGraph {
	g := NewMemoryGraph()
	g.AddEdge("pacemaker", "arrhythmia", true)
	g.AddEdge("pacemaker", "battery", true)
	g.AddEdge("defibrillator", "arrhythmia", true)
	g.AddEdge("defibrillator", "shock", true)
	g.AddEdge("battery", "lithium", false)
	return g
}

func staticSeeds(seeds ...string) func(string) ([]string, error) {
	return func(string) ([]string, error) { return seeds, nil }
}

func TestMemoryGraph(t *testing.T) {
	ctx := context.Background()
	g := newDeviceGraph()

	t.Run("Neighbors keep insertion order", func(t *testing.T) {
		neighbors, err := g.Neighbors(ctx, "pacemaker")
		require.NoError(t, err, "Expected no error")
		assert.Equal(t, []string{"arrhythmia", "battery"}, neighbors, "Expected insertion order")
	})

	t.Run("Directed edges have no reverse neighbor", func(t *testing.T) {
		neighbors, err := g.Neighbors(ctx, "lithium")
		require.NoError(t, err, "Expected no error")
		assert.Empty(t, neighbors, "Expected no neighbors")

		ok, err := g.HasNode(ctx, "lithium")
		require.NoError(t, err, "Expected no error")
		assert.True(t, ok, "Expected target to be a node")
	})

	t.Run("Duplicate edges are ignored", func(t *testing.T) {
		g := NewMemoryGraph()
		g.AddEdge("a", "b", true)
		g.AddEdge("b", "a", true)
		g.AddEdge("a", "a", true)

		neighbors, _ := g.Neighbors(ctx, "a")
		assert.Equal(t, []string{"b"}, neighbors, "Expected single neighbor")
		assert.Equal(t, 2, g.NodeCount(), "Expected two nodes")
	})
}

func TestBFS(t *testing.T) {
	ctx := context.Background()
	g := newDeviceGraph()

	t.Run("BFS from source with max hops 2", func(t *testing.T) {
		results, err := BFS(ctx, g, "pacemaker", 2)
		require.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 5, "Expected source, two neighbors and two second hop nodes")

		assert.Equal(t, "pacemaker", results[0].Name, "Expected source first")
		assert.Equal(t, 0, results[0].Distance, "Expected source distance 0")
		assert.Equal(t, []string{"pacemaker", "arrhythmia", "defibrillator"}, results[3].Path, "Expected path through arrhythmia")
		assert.Equal(t, 2, results[4].Distance, "Expected second hop distance")
	})

	t.Run("Unknown source yields nothing", func(t *testing.T) {
		results, err := BFS(ctx, g, "ventilator", 2)
		require.NoError(t, err, "Expected no error")
		assert.Empty(t, results, "Expected no results")
	})

	t.Run("Store errors propagate", func(t *testing.T) {
		_, err := BFS(ctx, failingStore{}, "pacemaker", 1)
		assert.Error(t, err, "Expected store error")
	})
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	g := newDeviceGraph()

	t.Run("One hop returns a neighbor list per known seed", func(t *testing.T) {
		lookup, err := NewLookup(g, staticSeeds("pacemaker", "ventilator", "defibrillator"), model.GraphSearchOneHop)
		require.NoError(t, err, "Expected lookup creation to succeed")

		tags, err := lookup.Tags(ctx, "ignored")
		require.NoError(t, err, "Expected Tags to not return an error")
		assert.Equal(t, [][]string{{"arrhythmia", "battery"}, {"arrhythmia", "shock"}}, tags, "Expected one list per known seed")
		assert.Equal(t, []string{"arrhythmia", "battery", "arrhythmia", "shock"}, Flatten(tags), "Expected flattened multiset")
	})

	t.Run("Two hop returns common neighbors per seed pair", func(t *testing.T) {
		lookup, err := NewLookup(g, staticSeeds("pacemaker", "defibrillator", "ventilator"), model.GraphSearchTwoHop)
		require.NoError(t, err, "Expected lookup creation to succeed")

		tags, err := lookup.Tags(ctx, "ignored")
		require.NoError(t, err, "Expected Tags to not return an error")
		assert.Equal(t, [][]string{{"arrhythmia"}}, tags, "Expected only the known pair")
	})

	t.Run("No seeds is an empty result", func(t *testing.T) {
		lookup, err := NewLookup(g, staticSeeds(), "")
		require.NoError(t, err, "Expected lookup creation to succeed")

		tags, err := lookup.Tags(ctx, "ignored")
		require.NoError(t, err, "Expected no error")
		assert.Empty(t, tags, "Expected empty result")
	})

	t.Run("Seed errors propagate", func(t *testing.T) {
		failing := func(string) ([]string, error) { return nil, errors.New("ner failed") }
		lookup, err := NewLookup(g, failing, "")
		require.NoError(t, err, "Expected lookup creation to succeed")

		_, err = lookup.Tags(ctx, "ignored")
		assert.Error(t, err, "Expected seed error")
	})

	t.Run("Invalid configuration", func(t *testing.T) {
		_, err := NewLookup(nil, staticSeeds(), "")
		assert.Error(t, err, "Expected error for nil store")

		_, err = NewLookup(g, nil, "")
		assert.Error(t, err, "Expected error for nil seed extractor")

		_, err = NewLookup(g, staticSeeds(), "three_hop")
		assert.Error(t, err, "Expected error for unknown method")
	})
}

func TestLoadGEXF(t *testing.T) {
	ctx := context.Background()

	t.Run("Loads labeled undirected graph", func(t *testing.T) {
		doc := `<?xml version="1.0" encoding="UTF-8"?>
<gexf xmlns="http://www.gexf.net/1.2draft" version="1.2">
  <graph defaultedgetype="undirected" mode="static">
    <nodes>
      <node id="0" label="stent" />
      <node id="1" label="restenosis" />
      <node id="2" label="thrombosis" />
    </nodes>
    <edges>
      <edge id="0" source="0" target="1" />
      <edge id="1" source="0" target="2" type="directed" />
    </edges>
  </graph>
</gexf>`

		g, err := LoadGEXF(strings.NewReader(doc))
		require.NoError(t, err, "Expected GEXF to load")
		assert.Equal(t, 3, g.NodeCount(), "Expected three nodes")

		neighbors, _ := g.Neighbors(ctx, "stent")
		assert.Equal(t, []string{"restenosis", "thrombosis"}, neighbors, "Expected both neighbors")

		neighbors, _ = g.Neighbors(ctx, "restenosis")
		assert.Equal(t, []string{"stent"}, neighbors, "Expected undirected reverse neighbor")

		neighbors, _ = g.Neighbors(ctx, "thrombosis")
		assert.Empty(t, neighbors, "Expected no reverse neighbor for directed edge")
	})

	t.Run("Unlabeled nodes use ids", func(t *testing.T) {
		doc := `<gexf><graph defaultedgetype="directed"><nodes><node id="stent"/><node id="graft"/></nodes>` +
			`<edges><edge source="stent" target="graft"/></edges></graph></gexf>`

		g, err := LoadGEXF(strings.NewReader(doc))
		require.NoError(t, err, "Expected GEXF to load")

		neighbors, _ := g.Neighbors(ctx, "stent")
		assert.Equal(t, []string{"graft"}, neighbors, "Expected id named neighbor")
		neighbors, _ = g.Neighbors(ctx, "graft")
		assert.Empty(t, neighbors, "Expected directed default")
	})

	t.Run("Invalid XML fails", func(t *testing.T) {
		_, err := LoadGEXF(strings.NewReader("<gexf><graph>"))
		assert.Error(t, err, "Expected decode error")
	})

	t.Run("Missing file fails", func(t *testing.T) {
		_, err := LoadGEXFFile("does-not-exist.gexf")
		assert.Error(t, err, "Expected open error")
	})
}
