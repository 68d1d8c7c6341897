package tools

import (
	"context"
	"errors"
	"strings"

	"ragagent/internal/domain"
	"ragagent/internal/service"
)

// NoIndexMessage is what retrieval answers before an index exists.
const NoIndexMessage = "No index found."

// Searcher is the part of the index service retrieval needs.
type Searcher interface {
	Query(ctx context.Context, q string, k int) ([]domain.SearchResult, error)
}

// Retrieval returns the text of the chunks most relevant to the input.
type Retrieval struct {
	index Searcher
	topK  int
}

func NewRetrieval(index Searcher, topK int) *Retrieval {
	if topK <= 0 {
		topK = service.DefaultTopK
	}
	return &Retrieval{index: index, topK: topK}
}

func (*Retrieval) Name() string { return "retrieval" }

func (*Retrieval) Description() string { return "Search uploaded documents using RAG." }

func (r *Retrieval) Call(ctx context.Context, input string) (string, error) {
	res, err := r.index.Query(ctx, input, r.topK)
	if errors.Is(err, service.ErrNoIndex) {
		return NoIndexMessage, nil
	}
	if err != nil {
		return "", err
	}
	texts := make([]string, len(res))
	for i, sr := range res {
		texts[i] = sr.Chunk.Text
	}
	return strings.Join(texts, "\n\n"), nil
}
