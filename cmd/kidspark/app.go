package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/agents"
	"github.com/kidspark-ai/kidspark/internal/classify"
	"github.com/kidspark-ai/kidspark/internal/guardrail"
	"github.com/kidspark-ai/kidspark/internal/intent"
	"github.com/kidspark-ai/kidspark/internal/observability"
	"github.com/kidspark-ai/kidspark/internal/orchestrator"
	"github.com/kidspark-ai/kidspark/internal/provider"
	"github.com/kidspark-ai/kidspark/internal/retrieval"
	"github.com/kidspark-ai/kidspark/pkg/config"
	"github.com/kidspark-ai/kidspark/pkg/embeddings"
	"github.com/kidspark-ai/kidspark/pkg/session"
	"github.com/kidspark-ai/kidspark/pkg/vectorstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	_ "github.com/kidspark-ai/kidspark/pkg/vectorstore/firestore"
	_ "github.com/kidspark-ai/kidspark/pkg/vectorstore/memory"
)

// app bundles the assembled pipeline for the CLI commands.
type app struct {
	engine    *orchestrator.Engine
	retrieval *retrieval.Engine
	sessions  *session.Manager
	sweeper   *session.Sweeper
	logger    *zap.Logger
}

// buildApp assembles the full pipeline from configuration.
func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	gen, err := provider.New(cfg.Provider, map[string]any{
		"api_key": providerKey(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	embProvider := "openai"
	if cfg.Provider == "mock" {
		embProvider = "deterministic"
	}
	embedder, err := embeddings.New(embeddings.Config{
		Provider: embProvider,
		APIKey:   cfg.OpenAIKey,
		Model:    cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := vectorstore.New(vectorstore.Config{
		Provider:            cfg.VectorProvider,
		ProjectID:           cfg.FirestoreProject,
		EmbeddingDimensions: embedder.Dimensions(),
		DefaultTopK:         cfg.Retrieval.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	retEngine := retrieval.NewEngine(store, embedder, retrieval.Options{
		TopK:          cfg.Retrieval.TopK,
		DenseWeight:   cfg.Retrieval.DenseWeight,
		LexicalWeight: cfg.Retrieval.LexicalWeight,
		MinDenseScore: float32(cfg.Retrieval.MinDenseScore),
		Timeout:       cfg.Timeouts.Retrieval,
	}, logger)

	backend, history, err := sessionStorage(cfg)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(backend, logger)
	sweeper, err := session.NewSweeper(backend, cfg.Session.SweepSpec, cfg.Session.IdleExpiry, logger)
	if err != nil {
		return nil, err
	}

	toxicity, err := toxicityScorer(cfg)
	if err != nil {
		return nil, err
	}
	// Every remote classifier carries the configured deadline so a hung
	// scoring backend fails the turn closed instead of blocking it.
	toxicity = classify.WithTimeout(toxicity, cfg.Timeouts.Classifier)

	reg := agents.NewRegistry()
	reg.Register(agents.NewGreetingAgent())
	reg.Register(agents.NewWhyAgent(gen, cfg.GenerationModel, cfg.MaxTokens))
	reg.Register(agents.NewActivityAgent(gen, cfg.GenerationModel, cfg.MaxTokens, history, logger))
	reg.Register(agents.NewStoryAgent(gen, cfg.GenerationModel, cfg.MaxTokens, history, logger))

	engine := orchestrator.NewEngine(cfg, orchestrator.EngineDeps{
		Router: intent.NewRouter(gen, cfg.ClassifierModel, logger,
			intent.WithSink(&intent.LogSink{Logger: logger}),
			intent.WithTimeout(cfg.Timeouts.Classifier)),
		InputGuard: guardrail.NewInputGuard(toxicity, cfg.Guardrails, logger),
		Retriever:  retEngine,
		Reranker:   retrieval.NewReranker(gen, cfg.ClassifierModel, logger),
		OutGuard: guardrail.NewOutputGuard(
			classify.WithTimeout(classify.NewSafetyScorer(gen, cfg.ClassifierModel), cfg.Timeouts.Classifier),
			classify.WithTimeout(classify.NewEntailmentScorer(gen, cfg.ClassifierModel), cfg.Timeouts.Classifier),
			cfg.Guardrails, logger),
		Agents:   reg,
		Sessions: sessions,
		Metrics:  observability.NewMetrics(prometheus.DefaultRegisterer),
	}, logger)

	return &app{
		engine:    engine,
		retrieval: retEngine,
		sessions:  sessions,
		sweeper:   sweeper,
		logger:    logger,
	}, nil
}

func providerKey(cfg *config.Config) string {
	if cfg.Provider == "gemini" {
		return cfg.GoogleKey
	}
	return cfg.OpenAIKey
}

// toxicityScorer returns the moderation-backed scorer, or a permissive
// fixed scorer under the mock provider so offline runs work end to end.
func toxicityScorer(cfg *config.Config) (classify.Scorer, error) {
	if cfg.Provider == "mock" {
		return classify.Fixed(0), nil
	}
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("toxicity screening requires an OpenAI key")
	}
	return classify.NewToxicityScorerFromKey(cfg.OpenAIKey), nil
}

// sessionStorage builds the session backend and seen-content history for
// the configured storage.
func sessionStorage(cfg *config.Config) (session.Backend, agents.SeenHistory, error) {
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Session.RedisAddr,
			DB:   cfg.Session.RedisDB,
		})
		return session.NewRedisBackend(client, cfg.Session.IdleExpiry),
			agents.NewRedisHistory(client), nil
	case "", "memory":
		return session.NewMemoryBackend(), agents.NewMemoryHistory(), nil
	}
	return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}
