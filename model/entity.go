package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity is a named node of the knowledge graph (device, condition, material, ...)
type Entity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"entity_type,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
