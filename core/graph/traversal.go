package graph

import "context"

// TraversalResult is a node reached from the source
type TraversalResult struct {
	Name     string
	Distance int
	Path     []string // Path from source to this node
}

// BFS performs breadth-first search from source up to maxHops.
// The source itself is the first result. Unknown sources yield no results.
func BFS(ctx context.Context, store Store, source string, maxHops int) ([]*TraversalResult, error) {
	ok, err := store.HasNode(ctx, source)
	if err != nil || !ok {
		return nil, err
	}

	visited := map[string]bool{source: true}
	queue := []*TraversalResult{{Name: source, Path: []string{source}}}

	var results []*TraversalResult
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		results = append(results, current)

		if current.Distance >= maxHops {
			continue
		}

		neighbors, err := store.Neighbors(ctx, current.Name)
		if err != nil {
			return nil, err
		}

		for _, neighbor := range neighbors {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true

			path := make([]string, len(current.Path), len(current.Path)+1)
			copy(path, current.Path)

			queue = append(queue, &TraversalResult{
				Name:     neighbor,
				Distance: current.Distance + 1,
				Path:     append(path, neighbor),
			})
		}
	}

	return results, nil
}

// GetNeighbors returns the one hop neighbors of name, excluding name itself
func GetNeighbors(ctx context.Context, store Store, name string) ([]string, error) {
	results, err := BFS(ctx, store, name, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	neighbors := make([]string, 0, len(results)-1)
	for _, result := range results[1:] {
		neighbors = append(neighbors, result.Name)
	}
	return neighbors, nil
}
