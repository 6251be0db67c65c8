package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kidspark-ai/kidspark/pkg/embeddings"
	"github.com/kidspark-ai/kidspark/pkg/vectorstore"
)

// Options tune the engine. Fusion weights are configuration, not fixed
// constants; the defaults favor the dense side.
type Options struct {
	TopK          int
	DenseWeight   float64
	LexicalWeight float64
	MinDenseScore float32
	Timeout       time.Duration
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		TopK:          10,
		DenseWeight:   0.7,
		LexicalWeight: 0.3,
		MinDenseScore: 0.1,
		Timeout:       5 * time.Second,
	}
}

// Engine performs hybrid retrieval over the content collections. It is
// read-only per query and order-stable: the same query and filters against
// the same index snapshot return the same ordered candidates.
type Engine struct {
	store    vectorstore.Store
	embedder embeddings.Service
	lexical  map[Collection]*LexicalIndex
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates an Engine over the given store and embedder.
func NewEngine(store vectorstore.Store, embedder embeddings.Service, opts Options, logger *zap.Logger) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.DenseWeight <= 0 && opts.LexicalWeight <= 0 {
		opts.DenseWeight = DefaultOptions().DenseWeight
		opts.LexicalWeight = DefaultOptions().LexicalWeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		lexical: map[Collection]*LexicalIndex{
			CollectionActivities: NewLexicalIndex(),
			CollectionStories:    NewLexicalIndex(),
			CollectionKnowledge:  NewLexicalIndex(),
		},
		opts:   opts,
		logger: logger,
	}
}

// AddDocuments writes documents to the vector store and mirrors them into
// the lexical index for the collection. Documents without an embedding are
// embedded from their content first.
func (e *Engine) AddDocuments(ctx context.Context, collection Collection, docs []vectorstore.Document) error {
	var missing []int
	for i := range docs {
		deriveLocation(docs[i].Metadata)
		if len(docs[i].Embedding) == 0 {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, idx := range missing {
			texts[i] = docs[idx].Content
		}
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding documents: %w", err)
		}
		for i, idx := range missing {
			docs[idx].Embedding = vectors[i]
		}
	}

	if err := e.store.Upsert(ctx, string(collection), docs); err != nil {
		return fmt.Errorf("upserting into %s: %w", collection, err)
	}
	idx := e.lexical[collection]
	if idx == nil {
		idx = NewLexicalIndex()
		e.lexical[collection] = idx
	}
	for _, doc := range docs {
		idx.Add(doc.ID, doc.Content, doc.Metadata)
	}
	return nil
}

// Retrieve runs the dense and lexical searches in parallel, applies the
// hard filters, and fuses the two ranked lists into one. The fused score is
// denseWeight*dense + lexicalWeight*lexical, with a missing side counted
// as zero.
func (e *Engine) Retrieve(ctx context.Context, query string, collection Collection, filters Filters) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	expanded := ExpandQuery(query, collection, filters.Age)
	metaFilter := filters.toMetadataFilter()

	var (
		denseResults   []vectorstore.SearchResult
		lexicalResults []lexicalHit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embedding, err := e.embedder.Embed(gctx, expanded)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}
		denseResults, err = e.store.Search(gctx, string(collection), vectorstore.SearchQuery{
			Embedding: embedding,
			TopK:      e.opts.TopK,
			Filter:    metaFilter,
			MinScore:  e.opts.MinDenseScore,
		})
		if err != nil {
			return fmt.Errorf("dense search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if idx := e.lexical[collection]; idx != nil {
			lexicalResults = idx.Search(expanded, e.opts.TopK, metaFilter)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := make(map[string]*Candidate)
	for _, r := range denseResults {
		fused[r.Document.ID] = &Candidate{
			ContentID:  r.Document.ID,
			Collection: collection,
			Score:      e.opts.DenseWeight * float64(r.Score),
			Content:    r.Document.Content,
			Metadata:   r.Document.Metadata,
		}
	}
	for _, h := range lexicalResults {
		if c, ok := fused[h.ID]; ok {
			c.Score += e.opts.LexicalWeight * h.Score
			continue
		}
		fused[h.ID] = &Candidate{
			ContentID:  h.ID,
			Collection: collection,
			Score:      e.opts.LexicalWeight * h.Score,
			Content:    h.Content,
			Metadata:   h.Metadata,
		}
	}

	candidates := make([]Candidate, 0, len(fused))
	for _, c := range fused {
		candidates = append(candidates, *c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ContentID < candidates[j].ContentID
	})
	if len(candidates) > e.opts.TopK {
		candidates = candidates[:e.opts.TopK]
	}

	e.logger.Debug("retrieval complete",
		zap.String("collection", string(collection)),
		zap.Int("dense", len(denseResults)),
		zap.Int("lexical", len(lexicalResults)),
		zap.Int("fused", len(candidates)),
	)
	return candidates, nil
}
