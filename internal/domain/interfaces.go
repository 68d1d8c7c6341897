package domain

import "context"

// Document represents a single text or PDF file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Name    string
	Content string
}

// Chunk is a semantically meaningful part of a document used for indexing.
type Chunk struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	Source     string `json:"source"`
	Text       string `json:"text"`
	Index      int    `json:"index"`
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// StatefulEmbedder is an Embedder whose corpus-derived state must be saved
// alongside an index so that a reloaded index embeds queries identically.
type StatefulEmbedder interface {
	Embedder
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Name() string
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// PersistentStore is a VectorStore that keeps its contents in a local
// directory instead of an external service.
type PersistentStore interface {
	VectorStore
	Save(dir string) error
	Load(dir string) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Tool is a named capability the agent can call with a single string input.
// Expected failures are reported inside the returned string; an error means
// the tool could not run at all.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input string) (string, error)
}
