// Package orchestrator runs the turn pipeline: filter, route, gate,
// retrieve, generate, gate again. Every gate failure resolves to a
// deterministic fallback response; a child never sees an error.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kidspark-ai/kidspark/internal/agents"
	"github.com/kidspark-ai/kidspark/internal/guardrail"
	"github.com/kidspark-ai/kidspark/internal/intent"
	"github.com/kidspark-ai/kidspark/internal/observability"
	"github.com/kidspark-ai/kidspark/internal/provider"
	"github.com/kidspark-ai/kidspark/internal/retrieval"
	"github.com/kidspark-ai/kidspark/pkg/config"
	"github.com/kidspark-ai/kidspark/pkg/safety"
	"github.com/kidspark-ai/kidspark/pkg/session"
)

// Retriever is the retrieval surface the engine needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, collection retrieval.Collection, filters retrieval.Filters) ([]retrieval.Candidate, error)
}

// Reranker rescores retrieval candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []retrieval.Candidate, topK int) ([]retrieval.Candidate, error)
}

// TurnRequest is one child message.
type TurnRequest struct {
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	Text       string `json:"text"`
	AgeGroup   int    `json:"age_group"`
	IsFollowUp bool   `json:"is_follow_up"`
}

// TurnMetadata travels alongside the response content.
type TurnMetadata struct {
	Confidence        float64                `json:"confidence"`
	DisplayType       agents.DisplayType     `json:"display_type"`
	StructuredPayload map[string]interface{} `json:"structured_payload,omitempty"`
	Fallback          bool                   `json:"fallback,omitempty"`
	FallbackCause     string                 `json:"fallback_cause,omitempty"`
	Warnings          []string               `json:"warnings,omitempty"`
	Verdicts          []guardrail.Verdict    `json:"verdicts,omitempty"`
}

// TurnResponse is the delivered turn.
type TurnResponse struct {
	SessionID string        `json:"session_id"`
	Content   string        `json:"content"`
	Intent    intent.Intent `json:"intent"`
	Metadata  TurnMetadata  `json:"metadata"`
}

// Engine wires the full pipeline.
type Engine struct {
	filter     *safety.LiteFilter
	router     *intent.Router
	inputGuard *guardrail.InputGuard
	retriever  Retriever
	reranker   Reranker
	retGuard   *guardrail.RetrievalGuard
	genGuard   *guardrail.GenerationGuard
	outGuard   *guardrail.OutputGuard
	agents     *agents.Registry
	sessions   *session.Manager
	metrics    *observability.Metrics
	limiter    *rate.Limiter
	cfg        *config.Config
	logger     *zap.Logger
}

// EngineDeps collects the engine's collaborators.
type EngineDeps struct {
	Router     *intent.Router
	InputGuard *guardrail.InputGuard
	Retriever  Retriever
	Reranker   Reranker
	OutGuard   *guardrail.OutputGuard
	Agents     *agents.Registry
	Sessions   *session.Manager
	Metrics    *observability.Metrics
}

// NewEngine assembles the pipeline.
func NewEngine(cfg *config.Config, deps EngineDeps, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		filter:     safety.NewLiteFilter(),
		router:     deps.Router,
		inputGuard: deps.InputGuard,
		retriever:  deps.Retriever,
		reranker:   deps.Reranker,
		retGuard:   guardrail.NewRetrievalGuard(cfg.Guardrails),
		genGuard:   guardrail.NewGenerationGuard(logger),
		outGuard:   deps.OutGuard,
		agents:     deps.Agents,
		sessions:   deps.Sessions,
		metrics:    deps.Metrics,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Timeouts.GenerationRPS), 1),
		cfg:        cfg,
		logger:     logger,
	}
}

// HandleTurn runs one message through the pipeline. Gate failures return
// a fallback response with a nil error; a non-nil error means the caller
// cancelled or the engine itself is broken.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "turn")
	defer span.End()

	trail := &guardrail.Trail{}

	sess, err := e.sessions.GetOrCreate(ctx, req.SessionID, req.UserID, req.AgeGroup)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	age := sess.AgeGroup
	if req.AgeGroup > 0 {
		age = req.AgeGroup
	}

	// Lite filter: cheap local screen before anything else runs.
	if ok, reason := e.filter.Check(req.Text); !ok {
		trail.Record(guardrail.Fail(guardrail.StageInput, reason, 1.0))
		e.logger.Info("lite filter blocked turn", zap.String("reason", reason))
		return e.fallback(sess, intent.IntentUnknown, 0, ErrInputRejected, trail, start), nil
	}

	cls := e.router.Classify(ctx, intent.Request{
		Text:         req.Text,
		UserID:       req.UserID,
		IsFollowUp:   req.IsFollowUp,
		ActiveIntent: intent.Intent(sess.ActiveIntent),
	})
	span.SetAttributes(
		attribute.String("intent", string(cls.Intent)),
		attribute.Float64("intent.confidence", cls.Confidence),
	)

	// Input gate. Nothing downstream ever sees the raw text.
	inRes, err := e.inputGuard.Check(ctx, req.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("input gate classifier unavailable", zap.Error(err))
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrClassifierUnavailable, trail, start), nil
	}
	trail.Record(inRes.Verdict)
	if !inRes.Verdict.Passed {
		e.failStage(guardrail.StageInput)
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrInputRejected, trail, start), nil
	}

	qc := agents.QueryContext{
		Query:        inRes.Sanitized,
		Age:          age,
		Params:       cls.Params,
		UserID:       req.UserID,
		SessionID:    sess.ID,
		IsFollowUp:   req.IsFollowUp,
		LastQuestion: sess.LastQuestion,
		LastAnswer:   sess.LastAnswer,
	}

	// Greetings are deterministic and skip retrieval and the output gate.
	if cls.Intent == intent.IntentGreeting {
		agent, err := e.agents.For(intent.IntentGreeting)
		if err != nil {
			return nil, err
		}
		art, err := agent.Produce(ctx, qc, guardrail.GenerationPlan{})
		if err != nil {
			return nil, fmt.Errorf("greeting: %w", err)
		}
		e.recordExchange(ctx, sess.ID, qc.Query, art.Text, cls.Intent)
		return e.respond(sess, cls, art, trail, nil, start), nil
	}

	// Unroutable input gets the generic redirect without spending a
	// retrieval on it.
	if cls.Intent == intent.IntentUnknown {
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrUnroutable, trail, start), nil
	}

	var warnings []string

	// Retrieval and rerank.
	candidates, rerankWarning, err := e.retrieveAndRerank(ctx, qc, cls)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("retrieval failed", zap.Error(err))
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrLowGrounding, trail, start), nil
	}
	if rerankWarning != "" {
		warnings = append(warnings, rerankWarning)
	}

	retVerdict := e.retGuard.Check(candidates)
	trail.Record(retVerdict)
	if !retVerdict.Passed {
		e.failStage(guardrail.StageRetrieval)
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrLowGrounding, trail, start), nil
	}

	plan, genVerdict := e.genGuard.Prepare(string(cls.Intent), age, e.retGuard.Qualified(candidates), e.cfg.Temperature)
	trail.Record(genVerdict)
	if !genVerdict.Passed {
		e.failStage(guardrail.StageGeneration)
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrLowGrounding, trail, start), nil
	}

	art, err := e.produce(ctx, cls.Intent, qc, plan)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("generation failed", zap.Error(err), zap.String("intent", string(cls.Intent)))
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrGenerationUnavailable, trail, start), nil
	}

	// Output gate.
	outRes, err := e.outGuard.Check(ctx, art.Text, art.Passages, age)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("output gate classifier unavailable", zap.Error(err))
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrClassifierUnavailable, trail, start), nil
	}

	// A too-complex answer gets one regeneration with a simplification
	// instruction before the turn falls back.
	if !outRes.Verdict.Passed && outRes.Verdict.Reason == guardrail.ReasonTooComplex {
		e.logger.Info("regenerating above-grade output", zap.String("intent", string(cls.Intent)))
		simplified := plan
		simplified.SystemInstruction += guardrail.SimplifyInstruction
		retry, err := e.produce(ctx, cls.Intent, qc, simplified)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return e.fallback(sess, cls.Intent, cls.Confidence, ErrOutputRejected, trail, start), nil
		}
		retryRes, err := e.outGuard.Check(ctx, retry.Text, retry.Passages, age)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Error("output gate classifier unavailable", zap.Error(err))
			return e.fallback(sess, cls.Intent, cls.Confidence, ErrClassifierUnavailable, trail, start), nil
		}
		art, outRes = retry, retryRes
		warnings = append(warnings, "readability_regenerated")
	}

	trail.Record(outRes.Verdict)
	if !outRes.Verdict.Passed {
		e.failStage(guardrail.StageOutput)
		e.logger.Warn("output gate rejected generated content",
			zap.String("reason", outRes.Verdict.Reason))
		return e.fallback(sess, cls.Intent, cls.Confidence, ErrOutputRejected, trail, start), nil
	}
	art.Text = outRes.Text
	warnings = append(warnings, outRes.Warnings...)

	e.recordExchange(ctx, sess.ID, qc.Query, art.Text, cls.Intent)
	return e.respond(sess, cls, art, trail, warnings, start), nil
}

// retrieveAndRerank runs the retrieval stage. A reranker failure degrades
// to the fused ordering with a warning rather than failing the turn.
func (e *Engine) retrieveAndRerank(ctx context.Context, qc agents.QueryContext, cls intent.Classification) ([]retrieval.Candidate, string, error) {
	ctx, span := observability.StartSpan(ctx, "retrieve")
	defer span.End()

	filters := retrieval.Filters{
		SafetyTag: "safe",
		Age:       qc.Age,
	}
	if cls.Params.Age > 0 && cls.Params.AgeUnit != "month" {
		filters.Age = cls.Params.Age
	}
	if cls.Intent == intent.IntentActivity {
		if cls.Params.Time > 0 {
			filters.MaxDurationMinutes = cls.Params.TimeMinutes()
		}
		filters.Mess = cls.Params.Mess
		filters.Location = cls.Params.Location
	}

	retStart := time.Now()
	candidates, err := e.retriever.Retrieve(ctx, qc.Query, retrieval.CollectionForIntent(string(cls.Intent)), filters)
	e.observe("retrieval", retStart)
	if err != nil {
		return nil, "", err
	}
	if len(candidates) == 0 {
		return candidates, "", nil
	}

	// The rerank model call carries the classifier deadline; expiry
	// degrades like any other reranker failure.
	rctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Classifier)
	defer cancel()
	rerankStart := time.Now()
	reranked, err := e.reranker.Rerank(rctx, qc.Query, candidates, e.cfg.Retrieval.RerankTopK)
	e.observe("rerank", rerankStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		e.logger.Warn("reranker unavailable, using fused order", zap.Error(err))
		return candidates, "rerank_unavailable", nil
	}
	return reranked, "", nil
}

// produce runs the agent's generation with rate limiting and retries on
// retryable provider errors.
func (e *Engine) produce(ctx context.Context, in intent.Intent, qc agents.QueryContext, plan guardrail.GenerationPlan) (*agents.Artifact, error) {
	agent, err := e.agents.For(in)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Generation)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= e.cfg.Timeouts.GenerationRetries; attempt++ {
		if err := e.limiter.Wait(gctx); err != nil {
			return nil, err
		}
		genStart := time.Now()
		art, err := agent.Produce(gctx, qc, plan)
		e.observe("generation", genStart)
		if err == nil {
			return art, nil
		}
		lastErr = err
		var perr *provider.Error
		if !errors.As(err, &perr) || !perr.IsRetryable {
			break
		}
		e.logger.Warn("retrying generation",
			zap.Int("attempt", attempt+1),
			zap.String("code", perr.Code))
	}
	return nil, lastErr
}

// fallback builds the deterministic fallback response for a failed turn.
func (e *Engine) fallback(sess *session.Session, in intent.Intent, confidence float64, cause error, trail *guardrail.Trail, start time.Time) *TurnResponse {
	c := causeOf(cause)
	e.countFallback(c)
	e.countTurn(in, "fallback")
	e.observeTurn(start)

	art := fallbackArtifact(in)
	return &TurnResponse{
		SessionID: sess.ID,
		Content:   art.Text,
		Intent:    in,
		Metadata: TurnMetadata{
			Confidence:        confidence,
			DisplayType:       art.DisplayType,
			StructuredPayload: art.Payload,
			Fallback:          true,
			FallbackCause:     c,
			Verdicts:          trail.Verdicts(),
		},
	}
}

// respond builds the success response.
func (e *Engine) respond(sess *session.Session, cls intent.Classification, art *agents.Artifact, trail *guardrail.Trail, warnings []string, start time.Time) *TurnResponse {
	e.countTurn(cls.Intent, "ok")
	e.observeTurn(start)
	return &TurnResponse{
		SessionID: sess.ID,
		Content:   art.Text,
		Intent:    cls.Intent,
		Metadata: TurnMetadata{
			Confidence:        cls.Confidence,
			DisplayType:       art.DisplayType,
			StructuredPayload: art.Payload,
			Warnings:          warnings,
			Verdicts:          trail.Verdicts(),
		},
	}
}

func (e *Engine) recordExchange(ctx context.Context, sessionID, question, answer string, in intent.Intent) {
	if err := e.sessions.RecordExchange(ctx, sessionID, question, answer, string(in)); err != nil {
		e.logger.Warn("failed to record exchange", zap.Error(err))
	}
}

func (e *Engine) countTurn(in intent.Intent, outcome string) {
	if e.metrics != nil {
		e.metrics.TurnsTotal.WithLabelValues(string(in), outcome).Inc()
	}
}

func (e *Engine) countFallback(cause string) {
	if e.metrics != nil {
		e.metrics.FallbacksTotal.WithLabelValues(cause).Inc()
	}
}

func (e *Engine) failStage(stage guardrail.Stage) {
	if e.metrics != nil {
		e.metrics.GuardrailFailures.WithLabelValues(string(stage)).Inc()
	}
}

func (e *Engine) observe(target string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveCall(target, start)
	}
}

func (e *Engine) observeTurn(start time.Time) {
	if e.metrics != nil {
		e.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}
}
