package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid config")

var validate = validator.New()

// LogConfig configures the process-wide structured logger.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
	// File receives log output when set. The TUI discards logs without it.
	File string `yaml:"file"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" default:"https://api.openai.com/v1" validate:"url"`
	APIKeyEnv   string `yaml:"api_key_env" default:"OPENAI_API_KEY" validate:"required"`
	Model       string `yaml:"model" default:"text-embedding-3-small" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" default:"30" validate:"gte=1"`
	BatchSize   int    `yaml:"batch_size" default:"32" validate:"gte=1,lte=2048"`
	MaxRetries  int    `yaml:"max_retries" default:"5" validate:"gte=0,lte=10"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string               `yaml:"type" default:"tfidf" validate:"oneof=tfidf openai"`
	OpenAI OpenAIEmbedderConfig `yaml:"openai"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" default:"recursive" validate:"oneof=recursive sentence"`
	ChunkSize         int    `yaml:"chunk_size" default:"800" validate:"gte=1"`
	ChunkOverlap      int    `yaml:"chunk_overlap" default:"150" validate:"gte=0,ltfield=ChunkSize"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" default:"5" validate:"gte=1"`
	OverlapSentences  int    `yaml:"overlap_sentences" default:"1" validate:"gte=0,ltfield=SentencesPerChunk"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string       `yaml:"type" default:"memory" validate:"oneof=memory qdrant"`
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" default:"http://localhost:6333" validate:"url"`
	APIKeyEnv   string `yaml:"api_key_env" default:"QDRANT_API_KEY"`
	Collection  string `yaml:"collection" default:"ragagent" validate:"required"`
	Distance    string `yaml:"distance" default:"Cosine" validate:"oneof=Cosine Dot Euclid Manhattan"`
	TimeoutSecs int    `yaml:"timeout_secs" default:"15" validate:"gte=1"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type" default:"frequency" validate:"oneof=frequency"`
	MaxSentences int    `yaml:"max_sentences" default:"5" validate:"gte=1"`
}

// IndexConfig controls where an index is persisted and how much it returns.
type IndexConfig struct {
	PersistDir string `yaml:"persist_dir" default:"rag_index" validate:"required"`
	TopK       int    `yaml:"top_k" default:"4" validate:"gte=1,lte=100"`
}

// CalculatorConfig bounds the expressions the calculator tool accepts.
type CalculatorConfig struct {
	MaxLength int `yaml:"max_length" default:"1024" validate:"gte=1"`
	MaxDepth  int `yaml:"max_depth" default:"64" validate:"gte=1"`
}

// SearchConfig configures the web_search tool backends.
type SearchConfig struct {
	SerpAPIURL    string `yaml:"serpapi_url" default:"https://serpapi.com/search.json" validate:"url"`
	SerpAPIKeyEnv string `yaml:"serpapi_key_env" default:"SERPAPI_API_KEY"`
	DuckDuckGoURL string `yaml:"duckduckgo_url" default:"https://api.duckduckgo.com/" validate:"url"`
	TimeoutSecs   int    `yaml:"timeout_secs" default:"10" validate:"gte=1"`
	MaxResults    int    `yaml:"max_results" default:"5" validate:"gte=1,lte=50"`
}

// LLMConfig configures the chat model that drives the agent.
type LLMConfig struct {
	BaseURL      string  `yaml:"base_url" default:"https://api.openai.com/v1" validate:"url"`
	APIKeyEnv    string  `yaml:"api_key_env" default:"OPENAI_API_KEY" validate:"required"`
	Model        string  `yaml:"model" default:"gpt-4o-mini" validate:"required"`
	Temperature  float64 `yaml:"temperature" default:"0" validate:"gte=0,lte=2"`
	MaxSteps     int     `yaml:"max_steps" default:"8" validate:"gte=1,lte=50"`
	TimeoutSecs  int     `yaml:"timeout_secs" default:"60" validate:"gte=1"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `yaml:"addr" default:":8080" validate:"required"`
	Mode        string `yaml:"mode" default:"release" validate:"oneof=debug release test"`
	UploadDir   string `yaml:"upload_dir" default:"uploads" validate:"required"`
	MaxUploadMB int    `yaml:"max_upload_mb" default:"32" validate:"gte=1,lte=1024"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log         LogConfig         `yaml:"log"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Index       IndexConfig       `yaml:"index"`
	Calculator  CalculatorConfig  `yaml:"calculator"`
	Search      SearchConfig      `yaml:"search"`
	LLM         LLMConfig         `yaml:"llm"`
	Server      ServerConfig      `yaml:"server"`
}

// Default returns a configuration with every field at its default value.
func Default() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	return cfg, nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Defaults are applied before decoding so that values set explicitly in the
// file, zeros included, take precedence.
func Load(path string) (*AppConfig, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragagent/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragagent/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg, err := Default()
	if err != nil {
		return nil, "", err
	}
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every section and reports all failing fields at once.
func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation (rule: %s, value: %v)", fe.Namespace(), rule, fe.Value()))
	}
	return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(msgs, "\n  - "))
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragagent", "config.yaml"), nil
}
