package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/provider"
)

// Rule pairs a pattern with a target intent and the confidence a hit
// carries. Rules are evaluated in registration order and the first
// confident hit wins, so ordering is part of the routing policy.
type Rule struct {
	Pattern    *regexp.Regexp
	Intent     Intent
	Confidence float64
}

// minRuleConfidence is the bar a rule hit must clear to settle the turn
// without consulting the model.
const minRuleConfidence = 0.9

// defaultRules is the built-in routing table. Story rules come first:
// an explicit story request wins over co-occurring activity or why cues.
var defaultRules = []Rule{
	{regexp.MustCompile(`(?i)\b(story|stories|fairy tale|once upon a time|bedtime)\b`), IntentStory, 0.95},
	{regexp.MustCompile(`(?i)\b(read|tell)\b.*\bbook\b`), IntentStory, 0.9},
	{regexp.MustCompile(`(?i)^\s*(why|how come|how does|how do|what is|what are)\b`), IntentWhy, 0.95},
	{regexp.MustCompile(`(?i)\b(why is|why are|why do|why does|explain|reason for|cause of)\b`), IntentWhy, 0.9},
	{regexp.MustCompile(`(?i)\b(activity|activities|things to do|what can we do|ideas for|craft|crafts|game|games|something to do|bored)\b`), IntentActivity, 0.9},
	{regexp.MustCompile(`(?i)^\s*(hello|hi|hey|howdy|greetings|good (morning|afternoon|evening)|what'?s up|nice to meet you)\b`), IntentGreeting, 0.9},
}

// Router classifies messages. It holds no per-turn state; follow-up
// continuity comes from the active intent passed in by the caller.
type Router struct {
	rules    []Rule
	provider provider.Provider
	model    string
	timeout  time.Duration
	sink     Sink
	logger   *zap.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRules replaces the built-in routing table.
func WithRules(rules []Rule) RouterOption {
	return func(r *Router) { r.rules = rules }
}

// WithSink sets the audit sink.
func WithSink(sink Sink) RouterOption {
	return func(r *Router) { r.sink = sink }
}

// WithTimeout bounds the model fallback call.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.timeout = d }
}

// NewRouter creates a Router. p may be nil, in which case rule misses
// resolve to unknown without a model call.
func NewRouter(p provider.Provider, model string, logger *zap.Logger, opts ...RouterOption) *Router {
	r := &Router{
		rules:    defaultRules,
		provider: p,
		model:    model,
		timeout:  10 * time.Second,
		sink:     &MemorySink{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Request carries one message through classification.
type Request struct {
	Text         string
	UserID       string
	MessageID    string
	IsFollowUp   bool
	ActiveIntent Intent
}

// Classify routes a message. Follow-ups inside a story or why exchange
// keep the session's active intent without re-classifying; everything
// else goes rules-first, model-second. Classifier errors resolve to
// unknown with zero confidence, never to a hard failure.
func (r *Router) Classify(ctx context.Context, req Request) Classification {
	result := r.classify(ctx, req)
	r.audit(ctx, req, result)
	return result
}

func (r *Router) classify(ctx context.Context, req Request) Classification {
	if req.IsFollowUp && (req.ActiveIntent == IntentStory || req.ActiveIntent == IntentWhy) {
		return Classification{
			Intent:     req.ActiveIntent,
			Confidence: 1.0,
			Method:     MethodSession,
			Params:     ExtractParams(req.Text, req.ActiveIntent),
		}
	}

	text := strings.TrimSpace(req.Text)
	for _, rule := range r.rules {
		if rule.Confidence >= minRuleConfidence && rule.Pattern.MatchString(text) {
			return Classification{
				Intent:     rule.Intent,
				Confidence: rule.Confidence,
				Method:     MethodRule,
				Params:     ExtractParams(text, rule.Intent),
			}
		}
	}

	return r.classifyByModel(ctx, text)
}

const classifierPrompt = `You are an intent classifier for a children's assistant. Classify the user's message into one of these intents:

1. "activity" - asking for activity suggestions or things to do with children
2. "story" - asking for a bedtime story or narrative
3. "why" - asking a question seeking an explanation
4. "greeting" - just saying hello
5. "unknown" - none of the above

For mixed inputs that mention several intents: a clear story request wins over everything else; "bored" plus a story request is "story"; "bored" alone is "activity"; explicit requests take precedence over implied needs.

Respond ONLY with the intent label and a confidence between 0.0 and 1.0 in the format "intent:confidence", for example "activity:0.95" or "unknown:0.3".`

var modelReplyRe = regexp.MustCompile(`(\w+):([01]?\.?\d+)`)

func (r *Router) classifyByModel(ctx context.Context, text string) Classification {
	unknown := Classification{Intent: IntentUnknown, Confidence: 0, Method: MethodNone}
	if r.provider == nil {
		return unknown
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Model: r.model,
		Messages: []provider.Message{
			{Role: "system", Content: classifierPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
		MaxTokens:   20,
	})
	if err != nil {
		r.logger.Warn("intent model call failed", zap.Error(err))
		return unknown
	}

	m := modelReplyRe.FindStringSubmatch(strings.TrimSpace(resp.Content))
	if m == nil {
		r.logger.Warn("unparseable intent reply", zap.String("reply", resp.Content))
		return Classification{Intent: IntentUnknown, Confidence: 0.3, Method: MethodModel}
	}

	classified := ParseIntent(strings.ToLower(m[1]))
	confidence, err := strconv.ParseFloat(m[2], 64)
	if err != nil || confidence < 0 || confidence > 1 {
		return Classification{Intent: IntentUnknown, Confidence: 0.3, Method: MethodModel}
	}

	result := Classification{
		Intent:     classified,
		Confidence: confidence,
		Method:     MethodModel,
	}
	if classified != IntentUnknown {
		result.Params = ExtractParams(text, classified)
	}
	return result
}

func (r *Router) audit(ctx context.Context, req Request, result Classification) {
	messageID := req.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}
	raw := req.Text
	if len(raw) > 500 {
		raw = raw[:500]
	}
	rec := Record{
		MessageID:  messageID,
		UserID:     req.UserID,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Method:     result.Method,
		RawInput:   raw,
		Timestamp:  time.Now().UTC(),
	}
	if err := r.sink.Record(ctx, rec); err != nil {
		r.logger.Warn("intent audit write failed", zap.Error(err))
	}
}
