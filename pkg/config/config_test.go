package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.7, cfg.Guardrails.ToxicityThreshold)
	assert.Equal(t, 2, cfg.Guardrails.MinCandidates)
	assert.Equal(t, 0.75, cfg.Guardrails.RelevanceThreshold)
	assert.Equal(t, 0.95, cfg.Guardrails.SafetyThreshold)
	assert.Equal(t, 0.8, cfg.Guardrails.EntailmentFlag)
	assert.Equal(t, 0.5, cfg.Guardrails.EntailmentReject)

	assert.Equal(t, 0.7, cfg.Retrieval.DenseWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.LexicalWeight)
	assert.Equal(t, 2, cfg.Timeouts.GenerationRetries)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleExpiry)
}

func TestLoadAppliesDefaultsOverPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: mock
guardrails:
  toxicity_threshold: 0.5
retrieval:
  top_k: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Provider)
	assert.Equal(t, 0.5, cfg.Guardrails.ToxicityThreshold)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	// Unset fields keep their defaults.
	assert.Equal(t, 0.95, cfg.Guardrails.SafetyThreshold)
	assert.Equal(t, 5, cfg.Retrieval.RerankTopK)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Provider = "mock"
	require.NoError(t, cfg.Validate())

	bad := Default()
	bad.Provider = "mock"
	bad.Guardrails.EntailmentReject = 0.9
	bad.Guardrails.EntailmentFlag = 0.8
	assert.Error(t, bad.Validate())

	weights := Default()
	weights.Provider = "mock"
	weights.Retrieval.DenseWeight = -1
	weights.Retrieval.LexicalWeight = 0
	assert.Error(t, weights.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Provider = "gemini"
	cfg.Guardrails.SensitiveBlock = 0.9

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", loaded.Provider)
	assert.Equal(t, 0.9, loaded.Guardrails.SensitiveBlock)
}
