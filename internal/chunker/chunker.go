// Package chunker splits documents into retrieval chunks.
package chunker

import (
	"fmt"

	"ragagent/internal/config"
	"ragagent/internal/domain"
)

// New builds the chunker named by cfg.Type.
func New(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "recursive", "":
		return NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap), nil
	case "sentence":
		return NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	}
	return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
}
