package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoCollection is the collection holding cache documents
const MongoCollection = "cache"

// maxInsertAttempts bounds how often an assigned timestamp is advanced on a duplicate triple
const maxInsertAttempts = 64

type mongoEntry struct {
	ID        string    `bson:"_id"`
	Query     string    `bson:"query"`
	Answer    string    `bson:"answer"`
	Tag       string    `bson:"tag"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoStore is a Store backed by a MongoDB collection
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoStore connects to uri and ensures the uniqueness index of the cache collection
func NewMongoStore(ctx context.Context, uri string, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, helper.NewError("mongo validation", fmt.Errorf("mongo uri is empty"))
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, helper.NewError("mongo connect", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(MongoCollection),
		now:        time.Now,
	}

	_, err = store.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "query", Value: 1}, {Key: "answer", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "tag", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, helper.NewError("create cache indexes", err)
	}

	return store, nil
}

// InsertCacheEntry appends an entry, assigning ID and CreatedAt when unset.
// An assigned CreatedAt that collides with an entry of the same query and answer
// is advanced by one millisecond. A given CreatedAt is kept and a duplicate is an error.
func (s *MongoStore) InsertCacheEntry(ctx context.Context, entry *model.CacheEntry) error {
	if !entry.Tag.Valid() {
		return helper.NewError("cache tag validation", fmt.Errorf("invalid cache tag %q", entry.Tag))
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	assigned := entry.CreatedAt.IsZero()
	if assigned {
		entry.CreatedAt = s.now().UTC()
	}
	// BSON dates keep milliseconds
	entry.CreatedAt = entry.CreatedAt.Truncate(time.Millisecond)

	for attempt := 1; ; attempt++ {
		_, err := s.collection.InsertOne(ctx, mongoEntry{
			ID:        entry.ID.String(),
			Query:     entry.Query,
			Answer:    entry.Answer,
			Tag:       string(entry.Tag),
			CreatedAt: entry.CreatedAt,
		})
		if err == nil {
			return nil
		}
		if !assigned || !mongo.IsDuplicateKeyError(err) || attempt >= maxInsertAttempts {
			return helper.NewError("insert one", err)
		}
		entry.CreatedAt = entry.CreatedAt.Add(time.Millisecond)
	}
}

// SelectCacheEntriesByTag returns all entries with tag, oldest first
func (s *MongoStore) SelectCacheEntriesByTag(ctx context.Context, tag model.CacheTag) ([]*model.CacheEntry, error) {
	cursor, err := s.collection.Find(
		ctx,
		bson.D{{Key: "tag", Value: string(tag)}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, helper.NewError("find", err)
	}

	var documents []mongoEntry
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, helper.NewError("decode", err)
	}

	entries := make([]*model.CacheEntry, 0, len(documents))
	for _, document := range documents {
		id, err := uuid.Parse(document.ID)
		if err != nil {
			return nil, helper.NewError("parse id", err)
		}
		entries = append(entries, &model.CacheEntry{
			ID:        id,
			Query:     document.Query,
			Answer:    document.Answer,
			Tag:       model.CacheTag(document.Tag),
			CreatedAt: document.CreatedAt.UTC(),
		})
	}
	return entries, nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
