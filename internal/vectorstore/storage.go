// Package vectorstore selects the configured vector store.
package vectorstore

import (
	"fmt"
	"os"
	"time"

	"ragagent/internal/config"
	"ragagent/internal/domain"
	"ragagent/internal/vectorstore/memory"
	"ragagent/internal/vectorstore/qdrant"
)

// New builds the vector store named by cfg.Type.
func New(cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.Qdrant
		var key string
		if q.APIKeyEnv != "" {
			key = os.Getenv(q.APIKeyEnv)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     key,
			Collection: q.Collection,
			Distance:   q.Distance,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
}
