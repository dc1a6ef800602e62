package graph

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/siherrmann/medrag/helper"
)

type gexfDocument struct {
	Graph struct {
		DefaultEdgeType string `xml:"defaultedgetype,attr"`
		Nodes           []struct {
			ID    string `xml:"id,attr"`
			Label string `xml:"label,attr"`
		} `xml:"nodes>node"`
		Edges []struct {
			Source string `xml:"source,attr"`
			Target string `xml:"target,attr"`
			Type   string `xml:"type,attr"`
		} `xml:"edges>edge"`
	} `xml:"graph"`
}

// LoadGEXFFile reads a GEXF knowledge graph from path
func LoadGEXFFile(path string) (*MemoryGraph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, helper.NewError("open gexf", err)
	}
	defer file.Close()

	return LoadGEXF(file)
}

// LoadGEXF reads a GEXF graph. Nodes are named by label, or by id if unlabeled.
// Edges are undirected unless the edge or the graph default says directed.
func LoadGEXF(r io.Reader) (*MemoryGraph, error) {
	var doc gexfDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, helper.NewError("decode gexf", err)
	}

	g := NewMemoryGraph()
	names := make(map[string]string, len(doc.Graph.Nodes))
	for _, node := range doc.Graph.Nodes {
		name := node.Label
		if name == "" {
			name = node.ID
		}
		names[node.ID] = name
		g.AddNode(name)
	}

	nameOf := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return id
	}

	for _, edge := range doc.Graph.Edges {
		edgeType := edge.Type
		if edgeType == "" {
			edgeType = doc.Graph.DefaultEdgeType
		}
		g.AddEdge(nameOf(edge.Source), nameOf(edge.Target), edgeType != "directed")
	}

	return g, nil
}
