package guardrail

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/classify"
	"github.com/kidspark-ai/kidspark/pkg/config"
	"github.com/kidspark-ai/kidspark/pkg/safety"
)

// InputResult carries the input verdict plus the sanitized text the rest
// of the pipeline must use. Raw input never travels past this gate.
type InputResult struct {
	Verdict       Verdict
	Sanitized     string
	RedactedTypes []string
}

// InputGuard validates user input before any retrieval or generation.
// Local checks (length, PII redaction, injection patterns) run first; the
// remote toxicity check runs last so obviously bad input costs nothing.
// A toxicity scorer failure is returned as an error: the caller must fail
// closed, not skip the check.
type InputGuard struct {
	redactor *safety.Redactor
	detector *safety.InjectionDetector
	toxicity classify.Scorer
	cfg      config.GuardrailConfig
	logger   *zap.Logger
}

// NewInputGuard creates the input checkpoint.
func NewInputGuard(toxicity classify.Scorer, cfg config.GuardrailConfig, logger *zap.Logger) *InputGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InputGuard{
		redactor: safety.NewRedactor(),
		detector: safety.NewInjectionDetector(safety.SensitivityHigh),
		toxicity: toxicity,
		cfg:      cfg,
		logger:   logger,
	}
}

// Check runs the input checkpoint. The returned error means a
// safety-critical classifier was unavailable; the turn must not proceed.
func (g *InputGuard) Check(ctx context.Context, text string) (InputResult, error) {
	if utf8.RuneCountInString(text) > g.cfg.MaxInputLength {
		return InputResult{
			Verdict: Fail(StageInput, fmt.Sprintf("input exceeds %d characters", g.cfg.MaxInputLength), 1.0),
		}, nil
	}

	red := g.redactor.Redact(text)
	if red.Redacted {
		g.logger.Info("redacted personal information from input",
			zap.Strings("types", red.Types))
	}

	if det := g.detector.Detect(red.Text); det.Detected {
		g.logger.Warn("injection attempt blocked",
			zap.String("category", string(det.Category)),
			zap.Float64("confidence", det.Confidence))
		return InputResult{
			Verdict:       Fail(StageInput, "instruction override attempt: "+string(det.Category), det.Confidence),
			Sanitized:     red.Text,
			RedactedTypes: red.Types,
		}, nil
	}

	score, err := g.toxicity.Score(ctx, red.Text, nil)
	if err != nil {
		return InputResult{}, fmt.Errorf("toxicity check: %w", err)
	}
	if score >= g.cfg.ToxicityThreshold {
		return InputResult{
			Verdict:       Fail(StageInput, "input failed the toxicity check", score),
			Sanitized:     red.Text,
			RedactedTypes: red.Types,
		}, nil
	}

	return InputResult{
		Verdict:       Pass(StageInput, 1-score),
		Sanitized:     red.Text,
		RedactedTypes: red.Types,
	}, nil
}
