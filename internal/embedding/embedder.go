// Package embedding selects the configured text embedder.
package embedding

import (
	"fmt"
	"time"

	"ragagent/internal/config"
	"ragagent/internal/domain"
	"ragagent/internal/embedding/openai"
	"ragagent/internal/embedding/tfidf"
)

// New builds the embedder named by cfg.Type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		o := cfg.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:    o.BaseURL,
			APIKeyEnv:  o.APIKeyEnv,
			Model:      o.Model,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			BatchSize:  o.BatchSize,
			MaxRetries: o.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
}
