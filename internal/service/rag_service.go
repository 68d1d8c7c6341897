// Package service builds, persists and queries the document index.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"ragagent/internal/domain"
	"ragagent/internal/loader"
	"ragagent/internal/textutil"
	"ragagent/internal/vectorstore/memory"
)

// ErrNoIndex is returned when nothing has been built or loaded yet.
var ErrNoIndex = errors.New("no index found")

// DefaultTopK is used by Query when k is not positive.
const DefaultTopK = 4

const (
	manifestFile = "manifest.yaml"
	chunksFile   = "chunks.json"
	stateFile    = "embedder.json"
)

// Manifest describes a persisted index.
type Manifest struct {
	Embedder  string    `yaml:"embedder" json:"embedder"`
	Store     string    `yaml:"store" json:"store"`
	Dimension int       `yaml:"dimension" json:"dimension"`
	Chunks    int       `yaml:"chunks" json:"chunks"`
	Documents []string  `yaml:"documents" json:"documents"`
	Summary   string    `yaml:"summary" json:"summary"`
	BuiltAt   time.Time `yaml:"built_at" json:"built_at"`
}

// attacher is implemented by stores whose contents live in an external
// service and only need reconnecting on Load.
type attacher interface {
	Attach(ctx context.Context) error
}

// Options configures a RAGService.
type Options struct {
	PersistDir          string
	SummaryMaxSentences int
	Logger              *slog.Logger
}

// RAGService owns the index lifecycle. It is safe for concurrent use;
// builds are serialized and block queries until they finish.
type RAGService struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	summarizer domain.Summarizer
	persistDir string
	summaryMax int
	log        *slog.Logger

	mu       sync.RWMutex
	chunks   []domain.Chunk
	manifest *Manifest
}

func NewRAGService(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, opts Options) *RAGService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RAGService{
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		summarizer: summarizer,
		persistDir: opts.PersistDir,
		summaryMax: opts.SummaryMaxSentences,
		log:        opts.Logger,
	}
}

// Build loads the files matched by paths and indexes them.
func (s *RAGService) Build(ctx context.Context, paths []string) (Manifest, error) {
	docs, err := loader.Load(paths)
	if err != nil {
		return Manifest{}, err
	}
	return s.BuildDocuments(ctx, docs)
}

// BuildDocuments replaces the current index with one built from docs and
// persists it.
func (s *RAGService) BuildDocuments(ctx context.Context, docs []domain.Document) (Manifest, error) {
	if len(docs) == 0 {
		return Manifest{}, loader.ErrNoDocuments
	}
	var (
		allChunks []domain.Chunk
		allTexts  []string
		names     []string
		concat    strings.Builder
	)
	for _, d := range docs {
		chunks, err := s.chunker.Chunk(d)
		if err != nil {
			return Manifest{}, fmt.Errorf("chunk %s: %w", d.Name, err)
		}
		for _, ch := range chunks {
			allChunks = append(allChunks, ch)
			allTexts = append(allTexts, ch.Text)
		}
		names = append(names, d.Name)
		concat.WriteString("\n")
		concat.WriteString(d.Content)
	}
	if len(allChunks) == 0 {
		return Manifest{}, errors.New("documents contain no text")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Preparing the embedder invalidates whatever index was loaded before.
	built := false
	defer func() {
		if !built {
			s.chunks, s.manifest = nil, nil
		}
	}()
	if err := s.embedder.Prepare(allTexts); err != nil {
		return Manifest{}, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors, err := s.embedder.EmbedBatch(ctx, allTexts)
	if err != nil {
		return Manifest{}, fmt.Errorf("embed chunks: %w", err)
	}
	dim := s.embedder.Dimension()
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	// Clear before Init: external stores drop the collection on Clear.
	if err := s.store.Clear(ctx); err != nil {
		return Manifest{}, fmt.Errorf("clear store: %w", err)
	}
	if err := s.store.Init(ctx, dim); err != nil {
		return Manifest{}, fmt.Errorf("init store: %w", err)
	}
	if err := s.store.Upsert(ctx, allChunks, vectors); err != nil {
		return Manifest{}, fmt.Errorf("upsert: %w", err)
	}
	summary, err := s.summarizer.Summarize(concat.String(), s.summaryMax)
	if err != nil {
		return Manifest{}, fmt.Errorf("summarize: %w", err)
	}

	m := Manifest{
		Embedder:  s.embedder.Name(),
		Store:     s.store.Name(),
		Dimension: dim,
		Chunks:    len(allChunks),
		Documents: names,
		Summary:   summary,
		BuiltAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := s.persist(m, allChunks); err != nil {
		return Manifest{}, err
	}
	s.chunks = allChunks
	s.manifest = &m
	built = true
	s.log.Info("index built",
		"documents", len(docs),
		"chunks", len(allChunks),
		"embedder", m.Embedder,
		"store", m.Store,
		"dimension", dim)
	return m, nil
}

func (s *RAGService) persist(m Manifest, chunks []domain.Chunk) error {
	if err := os.MkdirAll(s.persistDir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(chunksFile), data, 0o644); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}
	if ps, ok := s.store.(domain.PersistentStore); ok {
		if err := ps.Save(s.persistDir); err != nil {
			return fmt.Errorf("save store: %w", err)
		}
	}
	if se, ok := s.embedder.(domain.StatefulEmbedder); ok {
		state, err := se.MarshalState()
		if err != nil {
			return fmt.Errorf("save embedder state: %w", err)
		}
		if err := os.WriteFile(s.path(stateFile), state, 0o644); err != nil {
			return fmt.Errorf("save embedder state: %w", err)
		}
	}
	// The manifest goes last so a partial write never looks like an index.
	out, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(manifestFile), out, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load restores a previously built index from the persist directory.
func (s *RAGService) Load(ctx context.Context) (Manifest, error) {
	data, err := os.ReadFile(s.path(manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, ErrNoIndex
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Embedder != s.embedder.Name() {
		return Manifest{}, fmt.Errorf("index was built with embedder %q, configured embedder is %q", m.Embedder, s.embedder.Name())
	}
	if m.Store != s.store.Name() {
		return Manifest{}, fmt.Errorf("index was built with vector store %q, configured store is %q", m.Store, s.store.Name())
	}
	raw, err := os.ReadFile(s.path(chunksFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read chunks: %w", err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return Manifest{}, fmt.Errorf("decode chunks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if se, ok := s.embedder.(domain.StatefulEmbedder); ok {
		state, err := os.ReadFile(s.path(stateFile))
		if err != nil {
			return Manifest{}, fmt.Errorf("read embedder state: %w", err)
		}
		if err := se.UnmarshalState(state); err != nil {
			return Manifest{}, fmt.Errorf("restore embedder state: %w", err)
		}
	}
	switch st := s.store.(type) {
	case domain.PersistentStore:
		if err := st.Load(s.persistDir); err != nil {
			return Manifest{}, fmt.Errorf("load store: %w", err)
		}
	case attacher:
		if err := st.Attach(ctx); err != nil {
			return Manifest{}, fmt.Errorf("attach store: %w", err)
		}
	}
	s.chunks = chunks
	s.manifest = &m
	s.log.Info("index loaded", "dir", s.persistDir, "chunks", len(chunks), "embedder", m.Embedder)
	return m, nil
}

// Clear drops the store contents and the persisted index files. It reports
// whether there was an index to clear.
func (s *RAGService) Clear(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed := s.manifest != nil
	if _, err := os.Stat(s.path(manifestFile)); err == nil {
		existed = true
	}
	if !existed {
		return false, nil
	}
	if err := s.store.Clear(ctx); err != nil {
		return false, fmt.Errorf("clear store: %w", err)
	}
	// Only files this service writes are removed; persistDir may be shared.
	for _, name := range []string{manifestFile, chunksFile, stateFile, memory.FileName} {
		if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
	}
	_ = os.Remove(s.persistDir)
	s.chunks = nil
	s.manifest = nil
	s.log.Info("index cleared", "dir", s.persistDir)
	return true, nil
}

// Query returns the k chunks most similar to q. When the embedding carries
// no signal it ranks chunks by word overlap instead.
func (s *RAGService) Query(ctx context.Context, q string, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manifest == nil {
		return nil, ErrNoIndex
	}
	if k <= 0 {
		k = DefaultTopK
	}
	vec, err := s.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if isZero(vec) {
		return s.lexicalSearch(q, k), nil
	}
	res, err := s.store.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return s.lexicalSearch(q, k), nil
	}
	return res, nil
}

// Ready reports whether an index is built or loaded.
func (s *RAGService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest != nil
}

// Summary returns the summary of the current index, if any.
func (s *RAGService) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manifest == nil {
		return ""
	}
	return s.manifest.Summary
}

// Manifest returns the current index description.
func (s *RAGService) Manifest() (Manifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manifest == nil {
		return Manifest{}, false
	}
	return *s.manifest, true
}

func (s *RAGService) path(name string) string {
	return filepath.Join(s.persistDir, name)
}

func (s *RAGService) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := textutil.WordSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(s.chunks))
	for i, ch := range s.chunks {
		scores[i] = pair{i, textutil.Ochiai(qset, ch.Text)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		p := scores[i]
		out = append(out, domain.SearchResult{Chunk: s.chunks[p.idx], Score: p.score})
	}
	return out
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
