package model

import (
	"time"

	"github.com/google/uuid"
)

// CacheTag partitions the answer cache by the search mode that produced the answer
type CacheTag string

const (
	CacheTagNormal CacheTag = "normal"
	CacheTagDeep   CacheTag = "deep"
)

// Valid reports whether t is a known tag
func (t CacheTag) Valid() bool {
	return t == CacheTagNormal || t == CacheTagDeep
}

// CacheEntry is a past query with its answer. Entries are never updated.
type CacheEntry struct {
	ID        uuid.UUID `json:"id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Tag       CacheTag  `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}
