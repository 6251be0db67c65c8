// Package memory implements an in-memory vector store. Brute-force search,
// suitable for tests, development, and small content libraries.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kidspark-ai/kidspark/pkg/vectorstore"
)

// Store implements vectorstore.Store with per-collection document maps.
type Store struct {
	collections   map[string]map[string]vectorstore.Document
	maxDocuments  int
	defaultTopK   int
	embeddingDims int
	mu            sync.RWMutex
}

func init() {
	vectorstore.Register("memory", New)
}

// New creates a memory store from configuration.
func New(config vectorstore.Config) (vectorstore.Store, error) {
	if config.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be greater than 0, got %d", config.EmbeddingDimensions)
	}
	maxDocs := config.MaxDocuments
	if maxDocs <= 0 {
		maxDocs = 10000
	}
	topK := config.DefaultTopK
	if topK <= 0 {
		topK = 10
	}
	return &Store{
		collections:   make(map[string]map[string]vectorstore.Document),
		maxDocuments:  maxDocs,
		defaultTopK:   topK,
		embeddingDims: config.EmbeddingDimensions,
	}, nil
}

// Upsert inserts or updates documents in a collection.
func (m *Store) Upsert(_ context.Context, collection string, documents []vectorstore.Document) error {
	if len(documents) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range documents {
		if err := vectorstore.ValidateDocument(&documents[i]); err != nil {
			return fmt.Errorf("invalid document at index %d: %w", i, err)
		}
		if len(documents[i].Embedding) != m.embeddingDims {
			return fmt.Errorf("document %s embedding dimension mismatch: expected %d, got %d",
				documents[i].ID, m.embeddingDims, len(documents[i].Embedding))
		}
	}

	docs := m.collections[collection]
	if docs == nil {
		docs = make(map[string]vectorstore.Document)
		m.collections[collection] = docs
	}

	newDocs := 0
	for _, doc := range documents {
		if _, exists := docs[doc.ID]; !exists {
			newDocs++
		}
	}
	if m.count()+newDocs > m.maxDocuments {
		return fmt.Errorf("would exceed max documents limit %d", m.maxDocuments)
	}

	for _, doc := range documents {
		docs[doc.ID] = copyDocument(doc)
	}
	return nil
}

// Search performs brute-force cosine search within a collection. Results
// are ordered by score descending with document ID as tie-break, so a
// fixed snapshot always returns the same order.
func (m *Store) Search(_ context.Context, collection string, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	if query.TopK == 0 {
		query.TopK = m.defaultTopK
	}
	if err := vectorstore.ValidateSearchQuery(&query); err != nil {
		return nil, fmt.Errorf("invalid search query: %w", err)
	}
	if len(query.Embedding) != m.embeddingDims {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d",
			m.embeddingDims, len(query.Embedding))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []vectorstore.SearchResult
	for _, doc := range m.collections[collection] {
		if !vectorstore.MatchesFilter(doc, query.Filter) {
			continue
		}
		score := cosineSimilarity(query.Embedding, doc.Embedding)
		if query.MinScore > 0 && score < query.MinScore {
			continue
		}
		results = append(results, vectorstore.SearchResult{
			Document: copyDocument(doc),
			Score:    score,
		})
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

// Get retrieves documents by ID from a collection.
func (m *Store) Get(_ context.Context, collection string, ids []string) ([]vectorstore.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var documents []vectorstore.Document
	docs := m.collections[collection]
	for _, id := range ids {
		if doc, exists := docs[id]; exists {
			documents = append(documents, copyDocument(doc))
		}
	}
	return documents, nil
}

// Delete removes documents by ID from a collection.
func (m *Store) Delete(_ context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	for _, id := range ids {
		delete(docs, id)
	}
	return nil
}

// Close implements vectorstore.Store.
func (m *Store) Close() error {
	return nil
}

// Count returns the total number of stored documents.
func (m *Store) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count()
}

func (m *Store) count() int {
	n := 0
	for _, docs := range m.collections {
		n += len(docs)
	}
	return n
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

func copyDocument(doc vectorstore.Document) vectorstore.Document {
	embedding := make([]float32, len(doc.Embedding))
	copy(embedding, doc.Embedding)

	var metadata map[string]interface{}
	if doc.Metadata != nil {
		metadata = make(map[string]interface{}, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
	}

	return vectorstore.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  metadata,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
