package database

import (
	"context"
	"fmt"

	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// KnowledgeGraph exposes the entity and edge tables as a read graph keyed by entity name
type KnowledgeGraph struct {
	entities *EntitiesDBHandler
	edges    *EdgesDBHandler
}

// NewKnowledgeGraph creates the entity and edge handlers in dependency order
func NewKnowledgeGraph(db *helper.Database, force bool) (*KnowledgeGraph, error) {
	entities, err := NewEntitiesDBHandler(db, force)
	if err != nil {
		return nil, err
	}

	edges, err := NewEdgesDBHandler(db, force)
	if err != nil {
		return nil, err
	}

	return &KnowledgeGraph{entities: entities, edges: edges}, nil
}

// HasNode reports whether an entity with name exists
func (g *KnowledgeGraph) HasNode(ctx context.Context, name string) (bool, error) {
	return g.entities.EntityExists(ctx, name)
}

// Neighbors returns the sorted neighbor names of the entity
func (g *KnowledgeGraph) Neighbors(ctx context.Context, name string) ([]string, error) {
	return g.edges.SelectNeighborNames(ctx, name)
}

// AddRelation upserts both entities and connects them
func (g *KnowledgeGraph) AddRelation(ctx context.Context, source string, target string, relation string, bidirectional bool) (*model.Edge, error) {
	if source == "" || target == "" {
		return nil, helper.NewError("relation validation", fmt.Errorf("source and target names are required"))
	}

	sourceEntity := &model.Entity{Name: source, Metadata: model.Metadata{}}
	if err := g.entities.InsertEntity(ctx, sourceEntity); err != nil {
		return nil, helper.NewError("insert source entity", err)
	}

	targetEntity := &model.Entity{Name: target, Metadata: model.Metadata{}}
	if err := g.entities.InsertEntity(ctx, targetEntity); err != nil {
		return nil, helper.NewError("insert target entity", err)
	}

	edge := &model.Edge{
		SourceEntityID: sourceEntity.ID,
		TargetEntityID: targetEntity.ID,
		Relation:       relation,
		Bidirectional:  bidirectional,
		Metadata:       model.Metadata{},
	}
	if err := g.edges.InsertEdge(ctx, edge); err != nil {
		return nil, helper.NewError("insert edge", err)
	}

	return edge, nil
}
