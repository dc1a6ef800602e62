package graph

import (
	"context"
	"fmt"

	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// Lookup turns a subquery into groups of related entity names
type Lookup struct {
	store  Store
	seeds  pipeline.SeedExtractFunc
	method model.GraphSearchMethod
}

// NewLookup creates a lookup over store. An empty method means one hop.
func NewLookup(store Store, seeds pipeline.SeedExtractFunc, method model.GraphSearchMethod) (*Lookup, error) {
	if store == nil {
		return nil, helper.NewError("graph lookup validation", fmt.Errorf("graph store is nil"))
	}
	if seeds == nil {
		return nil, helper.NewError("graph lookup validation", fmt.Errorf("seed extractor is nil"))
	}

	switch method {
	case "":
		method = model.GraphSearchOneHop
	case model.GraphSearchOneHop, model.GraphSearchTwoHop:
	default:
		return nil, helper.NewError("graph lookup validation", fmt.Errorf("unsupported graph search method %q", method))
	}

	return &Lookup{store: store, seeds: seeds, method: method}, nil
}

// Tags returns one neighbor list per matched seed (one hop) or per matched seed pair (two hop).
// No seeds or no matching nodes give an empty result, not an error.
func (l *Lookup) Tags(ctx context.Context, subquery string) ([][]string, error) {
	seeds, err := l.seeds(subquery)
	if err != nil {
		return nil, helper.NewError("extract seeds", err)
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	if l.method == model.GraphSearchTwoHop {
		return TwoHop(ctx, l.store, seeds)
	}
	return OneHop(ctx, l.store, seeds)
}

// OneHop collects the neighbors of every seed that is a node
func OneHop(ctx context.Context, store Store, seeds []string) ([][]string, error) {
	var tags [][]string
	for _, seed := range seeds {
		ok, err := store.HasNode(ctx, seed)
		if err != nil {
			return nil, helper.NewError("has node", err)
		}
		if !ok {
			continue
		}

		neighbors, err := GetNeighbors(ctx, store, seed)
		if err != nil {
			return nil, helper.NewError("neighbors", err)
		}
		tags = append(tags, neighbors)
	}
	return tags, nil
}

// TwoHop collects the common neighbors of every pair of seeds that are both nodes
func TwoHop(ctx context.Context, store Store, seeds []string) ([][]string, error) {
	known := make([]bool, len(seeds))
	for i, seed := range seeds {
		ok, err := store.HasNode(ctx, seed)
		if err != nil {
			return nil, helper.NewError("has node", err)
		}
		known[i] = ok
	}

	neighborCache := make(map[string][]string)
	neighborsOf := func(name string) ([]string, error) {
		if n, ok := neighborCache[name]; ok {
			return n, nil
		}
		n, err := store.Neighbors(ctx, name)
		if err != nil {
			return nil, helper.NewError("neighbors", err)
		}
		neighborCache[name] = n
		return n, nil
	}

	var tags [][]string
	for i := 0; i < len(seeds); i++ {
		for j := i + 1; j < len(seeds); j++ {
			if !known[i] || !known[j] {
				continue
			}

			first, err := neighborsOf(seeds[i])
			if err != nil {
				return nil, err
			}
			second, err := neighborsOf(seeds[j])
			if err != nil {
				return nil, err
			}

			tags = append(tags, intersect(first, second))
		}
	}
	return tags, nil
}

// intersect keeps the order of a
func intersect(a []string, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, name := range b {
		inB[name] = struct{}{}
	}

	common := []string{}
	for _, name := range a {
		if _, ok := inB[name]; ok {
			common = append(common, name)
		}
	}
	return common
}

// Flatten concatenates tag groups into one multiset
func Flatten(groups [][]string) []string {
	var flat []string
	for _, group := range groups {
		flat = append(flat, group...)
	}
	return flat
}
