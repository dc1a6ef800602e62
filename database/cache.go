package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	loadSql "github.com/siherrmann/medrag/sql"
)

// CacheDBHandlerFunctions defines the interface for answer cache database operations.
type CacheDBHandlerFunctions interface {
	InsertCacheEntry(ctx context.Context, entry *model.CacheEntry) error
	SelectCacheEntriesByTag(ctx context.Context, tag model.CacheTag) ([]*model.CacheEntry, error)
	DeleteCacheEntry(ctx context.Context, id uuid.UUID) error
}

// CacheDBHandler stores past answers. Entries are append only.
type CacheDBHandler struct {
	db *helper.Database
}

// NewCacheDBHandler creates a new cache database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewCacheDBHandler(db *helper.Database, force bool) (*CacheDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	cacheDbHandler := &CacheDBHandler{
		db: db,
	}

	err := loadSql.LoadCacheSql(cacheDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load cache sql", err)
	}

	err = cacheDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized CacheDBHandler")

	return cacheDbHandler, nil
}

// CreateTable creates the 'cache' table with its (query, answer, created_at) uniqueness.
// If the table already exists, it does not create it again.
func (h *CacheDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_cache();`)
	if err != nil {
		log.Panicf("error initializing cache table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table cache")

	return nil
}

// InsertCacheEntry appends an entry. A zero CreatedAt is set by the database and
// advanced by a microsecond while it collides with the same query and answer.
// A given CreatedAt is kept and a duplicate triple is an error.
func (h *CacheDBHandler) InsertCacheEntry(ctx context.Context, entry *model.CacheEntry) error {
	if !entry.Tag.Valid() {
		return helper.NewError("cache tag validation", fmt.Errorf("invalid cache tag %q", entry.Tag))
	}

	var createdAt *time.Time
	if !entry.CreatedAt.IsZero() {
		createdAt = &entry.CreatedAt
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_cache_entry($1, $2, $3, $4)`,
		entry.Query,
		entry.Answer,
		string(entry.Tag),
		createdAt,
	)

	err := scanCacheEntry(row, entry)
	if errors.Is(err, sql.ErrNoRows) {
		return helper.NewError("insert cache entry", fmt.Errorf("entry with query %q already exists at %s", entry.Query, entry.CreatedAt))
	}
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectCacheEntriesByTag returns all entries with tag, oldest first
func (h *CacheDBHandler) SelectCacheEntriesByTag(ctx context.Context, tag model.CacheTag) ([]*model.CacheEntry, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_cache_entries_by_tag($1)`,
		string(tag),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []*model.CacheEntry
	for rows.Next() {
		entry := &model.CacheEntry{}
		if err := scanCacheEntry(rows, entry); err != nil {
			return nil, helper.NewError("scan", err)
		}
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entries, nil
}

// DeleteCacheEntry deletes an entry by ID
func (h *CacheDBHandler) DeleteCacheEntry(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_cache_entry($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanCacheEntry(row rowScanner, entry *model.CacheEntry) error {
	var tag string
	err := row.Scan(
		&entry.ID,
		&entry.Query,
		&entry.Answer,
		&tag,
		&entry.CreatedAt,
	)
	if err != nil {
		return err
	}
	entry.Tag = model.CacheTag(tag)
	return nil
}
