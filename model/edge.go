package model

import (
	"time"

	"github.com/google/uuid"
)

// Edge connects two entities of the knowledge graph.
// Bidirectional edges are reported as neighbors from both ends.
type Edge struct {
	ID             uuid.UUID `json:"id"`
	SourceEntityID uuid.UUID `json:"source_entity_id"`
	TargetEntityID uuid.UUID `json:"target_entity_id"`
	Relation       string    `json:"relation,omitempty"`
	Bidirectional  bool      `json:"bidirectional"`
	Metadata       Metadata  `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
