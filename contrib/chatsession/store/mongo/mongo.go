// Package mongo implements chatsession.Store on top of MongoDB, storing
// each session snapshot as one document keyed by its session id.
//
// Grounded on the teacher's memory/store/mongo.go MongoStore/MongoConfig
// idiom (client connect + ping, ReplaceOne-with-upsert writes, an index
// on the recency field); retargeted from memory.Memory documents to
// chatsession.Snapshot and trimmed to the three chatsession.Store
// methods.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ggozad/haikurag-core/chatsession"
	"github.com/ggozad/haikurag-core/citation"
	"github.com/ggozad/haikurag-core/config"
	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/research"
)

// ErrNotFound is returned by Load when no snapshot exists for an id.
var ErrNotFound = errors.New("chatsession: snapshot not found")

// Config holds MongoDB connection configuration for session snapshots.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// DefaultConfig returns the teacher's connection defaults, adapted to
// this store's own database/collection names.
func DefaultConfig() *Config {
	return &Config{
		URI:        "mongodb://localhost:27017",
		Database:   "haikurag",
		Collection: "chat_sessions",
	}
}

// mongoSnapshot is the BSON representation of a chatsession.Snapshot.
type mongoSnapshot struct {
	ID               string                   `bson:"_id"`
	QAHistory        []mongoQAHistoryEntry    `bson:"qa_history"`
	SessionContext   *research.SessionContext `bson:"session_context,omitempty"`
	CitationOrder    []string                 `bson:"citation_order"`
	UpdatedAt        time.Time                `bson:"updated_at"`
}

type mongoQAHistoryEntry struct {
	Question          string          `bson:"question"`
	Answer            string          `bson:"answer"`
	Citations         []mongoCitation `bson:"citations"`
	QuestionEmbedding []float32       `bson:"question_embedding,omitempty"`
}

type mongoCitation struct {
	Index         int      `bson:"index"`
	DocumentID    string   `bson:"document_id"`
	ChunkID       string   `bson:"chunk_id"`
	DocumentURI   string   `bson:"document_uri"`
	DocumentTitle *string  `bson:"document_title,omitempty"`
	PageNumbers   []int    `bson:"page_numbers"`
	Headings      []string `bson:"headings,omitempty"`
	Content       string   `bson:"content"`
}

// Store implements chatsession.Store using MongoDB.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to MongoDB and returns a chatsession.Store.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := config.ValidateMongoDBConfig(cfg.URI, cfg.Database, cfg.Collection); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)
	s := &Store{client: client, collection: collection}

	if err := s.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	return err
}

func toMongoCitation(c document.Citation) mongoCitation {
	return mongoCitation{
		Index:         c.Index,
		DocumentID:    c.DocumentID,
		ChunkID:       c.ChunkID,
		DocumentURI:   c.DocumentURI,
		DocumentTitle: c.DocumentTitle,
		PageNumbers:   c.PageNumbers,
		Headings:      c.Headings,
		Content:       c.Content,
	}
}

func fromMongoCitation(c mongoCitation) document.Citation {
	return document.Citation{
		Index:         c.Index,
		DocumentID:    c.DocumentID,
		ChunkID:       c.ChunkID,
		DocumentURI:   c.DocumentURI,
		DocumentTitle: c.DocumentTitle,
		PageNumbers:   c.PageNumbers,
		Headings:      c.Headings,
		Content:       c.Content,
	}
}

func toMongo(snap chatsession.Snapshot) mongoSnapshot {
	history := make([]mongoQAHistoryEntry, len(snap.QAHistory))
	for i, h := range snap.QAHistory {
		citations := make([]mongoCitation, len(h.Citations))
		for j, c := range h.Citations {
			citations[j] = toMongoCitation(c)
		}
		history[i] = mongoQAHistoryEntry{
			Question:          h.Question,
			Answer:            h.Answer,
			Citations:         citations,
			QuestionEmbedding: h.QuestionEmbedding,
		}
	}
	return mongoSnapshot{
		ID:             snap.ID,
		QAHistory:      history,
		SessionContext: snap.SessionContext,
		CitationOrder:  append([]string(nil), snap.CitationSnapshot.Order...),
		UpdatedAt:      snap.UpdatedAt,
	}
}

func fromMongo(m mongoSnapshot) chatsession.Snapshot {
	history := make([]chatsession.QAHistoryEntry, len(m.QAHistory))
	for i, h := range m.QAHistory {
		citations := make([]document.Citation, len(h.Citations))
		for j, c := range h.Citations {
			citations[j] = fromMongoCitation(c)
		}
		history[i] = chatsession.QAHistoryEntry{
			Question:          h.Question,
			Answer:            h.Answer,
			Citations:         citations,
			QuestionEmbedding: h.QuestionEmbedding,
		}
	}
	return chatsession.Snapshot{
		ID:               m.ID,
		QAHistory:        history,
		SessionContext:   m.SessionContext,
		CitationSnapshot: citation.Snapshot{Order: m.CitationOrder},
		UpdatedAt:        m.UpdatedAt,
	}
}

// Save upserts snap keyed by its ID.
func (s *Store) Save(ctx context.Context, snap chatsession.Snapshot) error {
	doc := toMongo(snap)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": snap.ID}, doc, opts); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return nil
}

// Load fetches the snapshot for id, returning ErrNotFound if absent.
func (s *Store) Load(ctx context.Context, id string) (chatsession.Snapshot, error) {
	var doc mongoSnapshot
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return chatsession.Snapshot{}, ErrNotFound
		}
		return chatsession.Snapshot{}, fmt.Errorf("load session snapshot: %w", err)
	}
	return fromMongo(doc), nil
}

// Delete removes the snapshot for id, if any.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}

// Close disconnects the underlying MongoDB client.
func (s *Store) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.Disconnect(ctx)
}
