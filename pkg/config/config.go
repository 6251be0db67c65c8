package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// API Keys
	OpenAIKey string `yaml:"openai_key"`
	GoogleKey string `yaml:"google_key"`

	// Model Configuration
	Provider        string  `yaml:"provider"` // openai, gemini, mock
	GenerationModel string  `yaml:"generation_model"`
	ClassifierModel string  `yaml:"classifier_model"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"` // upper bound, clamped by the generation gate

	// Guardrail thresholds
	Guardrails GuardrailConfig `yaml:"guardrails"`

	// Retrieval tuning
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// External call budgets
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// Session storage
	Session SessionConfig `yaml:"session"`

	// Vector store
	VectorProvider   string `yaml:"vector_provider"` // memory, firestore
	FirestoreProject string `yaml:"firestore_project"`
}

// GuardrailConfig holds the thresholds for the four pipeline gates.
type GuardrailConfig struct {
	MaxInputLength     int     `yaml:"max_input_length"`
	ToxicityThreshold  float64 `yaml:"toxicity_threshold"`
	MinCandidates      int     `yaml:"min_candidates"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	SafetyThreshold    float64 `yaml:"safety_threshold"`
	EntailmentFlag     float64 `yaml:"entailment_flag"`
	EntailmentReject   float64 `yaml:"entailment_reject"`
	SensitiveSoften    float64 `yaml:"sensitive_soften"`
	SensitiveBlock     float64 `yaml:"sensitive_block"`
}

// RetrievalConfig holds the hybrid search tuning parameters. The fusion
// weights are deliberately configuration, not constants: the right balance
// between dense and lexical scores depends on the content collections.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	RerankTopK    int     `yaml:"rerank_top_k"`
	DenseWeight   float64 `yaml:"dense_weight"`
	LexicalWeight float64 `yaml:"lexical_weight"`
	MinDenseScore float64 `yaml:"min_dense_score"`
}

// TimeoutConfig holds per-call deadlines and retry budgets for external calls.
type TimeoutConfig struct {
	Generation        time.Duration `yaml:"generation"`
	Classifier        time.Duration `yaml:"classifier"`
	Retrieval         time.Duration `yaml:"retrieval"`
	GenerationRetries int           `yaml:"generation_retries"`
	GenerationRPS     float64       `yaml:"generation_rps"`
}

// SessionConfig holds session storage configuration.
type SessionConfig struct {
	Backend    string        `yaml:"backend"` // memory, redis
	RedisAddr  string        `yaml:"redis_addr"`
	RedisDB    int           `yaml:"redis_db"`
	IdleExpiry time.Duration `yaml:"idle_expiry"`
	SweepSpec  string        `yaml:"sweep_spec"` // cron expression
}

// Load loads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied and API keys
// taken from the environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.GenerationModel == "" {
		c.GenerationModel = "gpt-4o"
	}
	if c.ClassifierModel == "" {
		c.ClassifierModel = "gpt-4o-mini"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 800
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.VectorProvider == "" {
		c.VectorProvider = "memory"
	}

	g := &c.Guardrails
	if g.MaxInputLength == 0 {
		g.MaxInputLength = 2000
	}
	if g.ToxicityThreshold == 0 {
		g.ToxicityThreshold = 0.7
	}
	if g.MinCandidates == 0 {
		g.MinCandidates = 2
	}
	if g.RelevanceThreshold == 0 {
		g.RelevanceThreshold = 0.75
	}
	if g.SafetyThreshold == 0 {
		g.SafetyThreshold = 0.95
	}
	if g.EntailmentFlag == 0 {
		g.EntailmentFlag = 0.8
	}
	if g.EntailmentReject == 0 {
		g.EntailmentReject = 0.5
	}
	if g.SensitiveSoften == 0 {
		g.SensitiveSoften = 0.5
	}
	if g.SensitiveBlock == 0 {
		g.SensitiveBlock = 0.85
	}

	r := &c.Retrieval
	if r.TopK == 0 {
		r.TopK = 10
	}
	if r.RerankTopK == 0 {
		r.RerankTopK = 5
	}
	if r.DenseWeight == 0 && r.LexicalWeight == 0 {
		r.DenseWeight = 0.7
		r.LexicalWeight = 0.3
	}
	if r.MinDenseScore == 0 {
		r.MinDenseScore = 0.1
	}

	t := &c.Timeouts
	if t.Generation == 0 {
		t.Generation = 30 * time.Second
	}
	if t.Classifier == 0 {
		t.Classifier = 10 * time.Second
	}
	if t.Retrieval == 0 {
		t.Retrieval = 5 * time.Second
	}
	if t.GenerationRetries == 0 {
		t.GenerationRetries = 2
	}
	if t.GenerationRPS == 0 {
		t.GenerationRPS = 5
	}

	s := &c.Session
	if s.Backend == "" {
		s.Backend = "memory"
	}
	if s.IdleExpiry == 0 {
		s.IdleExpiry = 30 * time.Minute
	}
	if s.SweepSpec == "" {
		s.SweepSpec = "@every 5m"
	}

	// Load API keys from environment if not in config
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.GoogleKey == "" {
		c.GoogleKey = os.Getenv("GOOGLE_API_KEY")
	}
}

// Save saves configuration to a YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Guardrails.EntailmentReject > c.Guardrails.EntailmentFlag {
		return fmt.Errorf("entailment_reject must not exceed entailment_flag")
	}
	if c.Guardrails.SensitiveSoften > c.Guardrails.SensitiveBlock {
		return fmt.Errorf("sensitive_soften must not exceed sensitive_block")
	}
	if c.Retrieval.DenseWeight+c.Retrieval.LexicalWeight <= 0 {
		return fmt.Errorf("retrieval fusion weights must sum to a positive value")
	}
	if c.Provider != "mock" && c.OpenAIKey == "" && c.GoogleKey == "" {
		return fmt.Errorf("at least one API key must be configured")
	}
	return nil
}
