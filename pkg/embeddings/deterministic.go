package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

func init() {
	Register("deterministic", func(config Config) (Service, error) {
		dims := config.Dimensions
		if dims <= 0 {
			dims = 64
		}
		return NewDeterministic(dims), nil
	})
}

// Deterministic is a local, model-free embedding service. Each token is
// hashed into a fixed bucket and the resulting vector is L2-normalized, so
// texts sharing vocabulary land near each other. Meant for tests and
// offline development, not for production relevance.
type Deterministic struct {
	dims int
}

// NewDeterministic creates a deterministic embedding service.
func NewDeterministic(dims int) *Deterministic {
	return &Deterministic{dims: dims}
}

// Embed implements Service
func (d *Deterministic) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, d.dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(d.dims)] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedBatch implements Service
func (d *Deterministic) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := d.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions implements Service
func (d *Deterministic) Dimensions() int {
	return d.dims
}

// ModelName implements Service
func (d *Deterministic) ModelName() string {
	return "deterministic"
}
