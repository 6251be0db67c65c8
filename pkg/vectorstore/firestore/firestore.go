// Package firestore implements a vector store on Cloud Firestore. Documents
// are fetched with server-side equality filters where possible; similarity
// scoring runs client-side, which is fine for content libraries of a few
// thousand items per collection.
package firestore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kidspark-ai/kidspark/pkg/vectorstore"
)

func init() {
	vectorstore.Register("firestore", func(config vectorstore.Config) (vectorstore.Store, error) {
		return New(context.Background(), config)
	})
}

// Store implements vectorstore.Store on Firestore.
type Store struct {
	client *firestore.Client
	prefix string
}

// storedDocument is the Firestore persistence shape. Embeddings are stored
// as float64 because Firestore has no float32 array type.
type storedDocument struct {
	Content   string                 `firestore:"content"`
	Embedding []float64              `firestore:"embedding"`
	Metadata  map[string]interface{} `firestore:"metadata"`
	CreatedAt time.Time              `firestore:"created_at"`
	UpdatedAt time.Time              `firestore:"updated_at"`
}

// New creates a Firestore-backed store.
func New(ctx context.Context, config vectorstore.Config) (*Store, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("firestore project_id is required")
	}
	client, err := firestore.NewClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Store{client: client, prefix: config.CollectionPrefix}, nil
}

func (s *Store) collRef(collection string) *firestore.CollectionRef {
	return s.client.Collection(s.prefix + collection)
}

// Upsert writes documents in a batched commit.
func (s *Store) Upsert(ctx context.Context, collection string, documents []vectorstore.Document) error {
	if len(documents) == 0 {
		return nil
	}
	for i := range documents {
		if err := vectorstore.ValidateDocument(&documents[i]); err != nil {
			return fmt.Errorf("invalid document at index %d: %w", i, err)
		}
	}

	bw := s.client.BulkWriter(ctx)
	ref := s.collRef(collection)
	now := time.Now().UTC()
	for _, doc := range documents {
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		stored := storedDocument{
			Content:   doc.Content,
			Embedding: toFloat64(doc.Embedding),
			Metadata:  doc.Metadata,
			CreatedAt: createdAt,
			UpdatedAt: now,
		}
		if _, err := bw.Set(ref.Doc(doc.ID), stored); err != nil {
			return fmt.Errorf("queueing document %s: %w", doc.ID, err)
		}
	}
	bw.End()
	return nil
}

// Search fetches the collection (with server-side equality filters from
// Must conditions), scores client-side, and returns the top K. Ordering is
// score descending with ID tie-break.
func (s *Store) Search(ctx context.Context, collection string, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	if query.TopK == 0 {
		query.TopK = 10
	}
	if err := vectorstore.ValidateSearchQuery(&query); err != nil {
		return nil, fmt.Errorf("invalid search query: %w", err)
	}

	fsQuery := s.collRef(collection).Query
	if query.Filter != nil {
		for key, expected := range query.Filter.Must {
			fsQuery = fsQuery.Where("metadata."+key, "==", expected)
		}
	}

	iter := fsQuery.Documents(ctx)
	defer iter.Stop()

	var results []vectorstore.SearchResult
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating documents: %w", err)
		}

		var stored storedDocument
		if err := snap.DataTo(&stored); err != nil {
			return nil, fmt.Errorf("unmarshaling document %s: %w", snap.Ref.ID, err)
		}

		doc := vectorstore.Document{
			ID:        snap.Ref.ID,
			Content:   stored.Content,
			Embedding: toFloat32(stored.Embedding),
			Metadata:  stored.Metadata,
			CreatedAt: stored.CreatedAt,
			UpdatedAt: stored.UpdatedAt,
		}
		// Range and MustNot conditions have no server-side form here.
		if !vectorstore.MatchesFilter(doc, query.Filter) {
			continue
		}

		score := cosineSimilarity(query.Embedding, doc.Embedding)
		if query.MinScore > 0 && score < query.MinScore {
			continue
		}
		results = append(results, vectorstore.SearchResult{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	if len(results) > query.TopK {
		results = results[:query.TopK]
	}
	return results, nil
}

// Get retrieves documents by ID.
func (s *Store) Get(ctx context.Context, collection string, ids []string) ([]vectorstore.Document, error) {
	ref := s.collRef(collection)
	var documents []vectorstore.Document
	for _, id := range ids {
		snap, err := ref.Doc(id).Get(ctx)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("getting document %s: %w", id, err)
		}
		var stored storedDocument
		if err := snap.DataTo(&stored); err != nil {
			return nil, fmt.Errorf("unmarshaling document %s: %w", id, err)
		}
		documents = append(documents, vectorstore.Document{
			ID:        id,
			Content:   stored.Content,
			Embedding: toFloat32(stored.Embedding),
			Metadata:  stored.Metadata,
			CreatedAt: stored.CreatedAt,
			UpdatedAt: stored.UpdatedAt,
		})
	}
	return documents, nil
}

// Delete removes documents by ID.
func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	ref := s.collRef(collection)
	for _, id := range ids {
		if _, err := ref.Doc(id).Delete(ctx); err != nil {
			return fmt.Errorf("deleting document %s: %w", id, err)
		}
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
