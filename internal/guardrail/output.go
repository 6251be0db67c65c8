package guardrail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/classify"
	"github.com/kidspark-ai/kidspark/pkg/config"
)

// OutputResult carries the output verdict, the text to deliver (possibly
// softened), and non-blocking warnings recorded in turn metadata.
type OutputResult struct {
	Verdict  Verdict
	Text     string
	Warnings []string
}

// softenerSuffix is appended when a sensitive topic scores in the soften
// band. The answer still goes out, wrapped in reassurance.
const softenerSuffix = "\n\nIf this makes you feel worried or sad, it can help to talk about it with a grown-up you trust."

// ReasonTooComplex marks a readability rejection. Unlike the other output
// failures this one is recoverable: the caller may regenerate once with
// SimplifyInstruction before falling back.
const ReasonTooComplex = "reading level above age target"

// SimplifyInstruction is appended to the system instruction when
// regenerating after a readability rejection.
const SimplifyInstruction = "\n\nYour last answer was too hard to read. Say it again with very short sentences and the simplest words you can."

// readabilityMargin is how far above the age target a grade may land
// before the text is rejected. Spoken answers tolerate a little slack.
const readabilityMargin = 1.0

// OutputGuard is the last checkpoint before anything reaches a child.
// Safety and grounding checks are blocking and fail closed when their
// classifier is unavailable; readability is computed locally and rejects
// with ReasonTooComplex so the caller can regenerate a simpler answer.
type OutputGuard struct {
	safety     classify.Scorer
	entailment classify.Scorer
	sensitive  classify.Scorer
	cfg        config.GuardrailConfig
	logger     *zap.Logger
}

// NewOutputGuard creates the output checkpoint. safetyScorer and
// entailmentScorer are required; the sensitive-topic check always uses
// the built-in lexicon.
func NewOutputGuard(safetyScorer, entailmentScorer classify.Scorer, cfg config.GuardrailConfig, logger *zap.Logger) *OutputGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutputGuard{
		safety:     safetyScorer,
		entailment: entailmentScorer,
		sensitive:  classify.NewSensitiveTopicScorer(),
		cfg:        cfg,
		logger:     logger,
	}
}

// Check runs the output checkpoint on generated text. passages are the
// grounding candidates the text was generated from; when empty (greeting
// turns) the entailment check is skipped. The returned error means a
// safety-critical classifier was unavailable and the caller must fail
// closed.
func (g *OutputGuard) Check(ctx context.Context, text string, passages []string, age int) (OutputResult, error) {
	safetyScore, err := g.safety.Score(ctx, text, nil)
	if err != nil {
		return OutputResult{}, fmt.Errorf("safety check: %w", err)
	}
	if safetyScore < g.cfg.SafetyThreshold {
		return OutputResult{
			Verdict: Fail(StageOutput, "generated content failed the age-appropriateness check", safetyScore),
		}, nil
	}

	var warnings []string

	if len(passages) > 0 {
		entailScore, err := g.entailment.Score(ctx, text, passages)
		if err != nil {
			return OutputResult{}, fmt.Errorf("entailment check: %w", err)
		}
		if entailScore < g.cfg.EntailmentReject {
			return OutputResult{
				Verdict: Fail(StageOutput, "generated content is not supported by its grounding", entailScore),
			}, nil
		}
		if entailScore < g.cfg.EntailmentFlag {
			warnings = append(warnings, fmt.Sprintf("weak_grounding:%.2f", entailScore))
		}
	}

	// Too-hard text for the age is not a safe answer; reject so the
	// caller can regenerate once with SimplifyInstruction.
	grade := classify.FleschKincaidGrade(text)
	if target := classify.GradeForAge(age); grade > target+readabilityMargin {
		g.logger.Info("output readability above age target",
			zap.Float64("grade", grade),
			zap.Float64("target", target),
			zap.Int("age", age))
		return OutputResult{
			Verdict: Fail(StageOutput, ReasonTooComplex, 1.0),
		}, nil
	}

	out := text
	sensScore, err := g.sensitive.Score(ctx, text, nil)
	if err != nil {
		// The lexicon scorer cannot fail today; treat a failure from a
		// swapped-in scorer as advisory like readability.
		warnings = append(warnings, "sensitive_check_unavailable")
	} else {
		switch {
		case sensScore >= g.cfg.SensitiveBlock:
			return OutputResult{
				Verdict: Fail(StageOutput, "generated content touches a blocked sensitive topic", sensScore),
			}, nil
		case sensScore >= g.cfg.SensitiveSoften:
			out += softenerSuffix
			warnings = append(warnings, "sensitive_topic_softened")
		}
	}

	return OutputResult{
		Verdict:  Pass(StageOutput, safetyScore),
		Text:     out,
		Warnings: warnings,
	}, nil
}
