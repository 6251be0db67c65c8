// Package guardrail implements the four checkpoints around the generative
// call: input, retrieval, generation, and output. Each stage yields a
// Verdict; the orchestrator stops the turn at the first failure. Verdicts
// accumulate in an append-only Trail so a rejected turn still carries the
// full record of what passed before the stop.
package guardrail

import "sync"

// Stage identifies a pipeline checkpoint.
type Stage string

const (
	StageInput      Stage = "input"
	StageRetrieval  Stage = "retrieval"
	StageGeneration Stage = "generation"
	StageOutput     Stage = "output"
)

// Verdict is the outcome of one checkpoint.
type Verdict struct {
	Stage      Stage   `json:"stage"`
	Passed     bool    `json:"passed"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Pass returns a passing verdict for the stage.
func Pass(stage Stage, confidence float64) Verdict {
	return Verdict{Stage: stage, Passed: true, Confidence: confidence}
}

// Fail returns a failing verdict with the given reason.
func Fail(stage Stage, reason string, confidence float64) Verdict {
	return Verdict{Stage: stage, Passed: false, Reason: reason, Confidence: confidence}
}

// Trail is the append-only verdict log for one turn. A verdict, once
// recorded, is never amended.
type Trail struct {
	mu       sync.Mutex
	verdicts []Verdict
}

// Record appends a verdict.
func (t *Trail) Record(v Verdict) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.verdicts = append(t.verdicts, v)
}

// Verdicts returns a copy of the recorded verdicts in order.
func (t *Trail) Verdicts() []Verdict {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Verdict, len(t.verdicts))
	copy(out, t.verdicts)
	return out
}

// Failed returns the first failing verdict, or nil if every recorded stage
// passed.
func (t *Trail) Failed() *Verdict {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.verdicts {
		if !t.verdicts[i].Passed {
			v := t.verdicts[i]
			return &v
		}
	}
	return nil
}
