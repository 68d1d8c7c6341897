package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragagent/internal/chunker"
	"ragagent/internal/domain"
	"ragagent/internal/embedding/tfidf"
	"ragagent/internal/loader"
	"ragagent/internal/summarizer"
	"ragagent/internal/vectorstore/memory"
)

func newTestService(dir string) *RAGService {
	return NewRAGService(
		chunker.NewRecursiveSplitter(200, 0),
		tfidf.NewEmbedder(),
		memory.NewStorage(),
		summarizer.NewFrequencySummarizer(),
		Options{
			PersistDir:          dir,
			SummaryMaxSentences: 2,
			Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	)
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"fruit.txt":  "Apples grow on trees in the orchard. Bananas ripen in warm climates.",
		"space.txt":  "Rockets carry satellites into orbit. Astronauts train for years.",
		"ignored.go": "package main",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestQueryWithoutIndex(t *testing.T) {
	svc := newTestService(filepath.Join(t.TempDir(), "idx"))
	_, err := svc.Query(context.Background(), "apples", 3)
	assert.ErrorIs(t, err, ErrNoIndex)
	assert.False(t, svc.Ready())
	assert.Empty(t, svc.Summary())
}

func TestBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	svc := newTestService(filepath.Join(t.TempDir(), "idx"))

	m, err := svc.Build(ctx, []string{filepath.Join(corpus, "*")})
	require.NoError(t, err)
	assert.Equal(t, "tfidf", m.Embedder)
	assert.Equal(t, "memory", m.Store)
	assert.Equal(t, 2, m.Chunks)
	assert.ElementsMatch(t, []string{"fruit.txt", "space.txt"}, m.Documents)
	assert.NotEmpty(t, m.Summary)
	assert.True(t, svc.Ready())
	assert.Equal(t, m.Summary, svc.Summary())

	res, err := svc.Query(ctx, "rockets and satellites", 2)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "space.txt", res[0].Chunk.Source)
	assert.Greater(t, res[0].Score, 0.0)
}

func TestBuildNoDocuments(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.go"), []byte("package main"), 0o644))
	svc := newTestService(filepath.Join(t.TempDir(), "idx"))
	_, err := svc.Build(context.Background(), []string{filepath.Join(src, "*")})
	assert.ErrorIs(t, err, loader.ErrNoDocuments)

	_, err = svc.BuildDocuments(context.Background(), []domain.Document{loader.NewDocument("blank.txt", "  \n ")})
	assert.Error(t, err)
	assert.False(t, svc.Ready())
}

func TestLexicalFallback(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(filepath.Join(t.TempDir(), "idx"))
	_, err := svc.BuildDocuments(ctx, []domain.Document{
		loader.NewDocument("a.txt", "Rockets carry satellites."),
		loader.NewDocument("b.txt", "The orchard is in the valley."),
	})
	require.NoError(t, err)

	// Stopwords carry no TF-IDF weight, so ranking falls back to word overlap.
	res, err := svc.Query(ctx, "is the", 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "b.txt", res[0].Chunk.Source)
	assert.Greater(t, res[0].Score, 0.0)
	assert.Zero(t, res[1].Score)
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	idx := filepath.Join(t.TempDir(), "idx")

	built, err := newTestService(idx).Build(ctx, []string{filepath.Join(corpus, "*.txt")})
	require.NoError(t, err)
	for _, name := range []string{manifestFile, chunksFile, stateFile, memory.FileName} {
		assert.FileExists(t, filepath.Join(idx, name))
	}

	svc := newTestService(idx)
	m, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, built.Documents, m.Documents)
	assert.Equal(t, built.Chunks, m.Chunks)
	assert.Equal(t, built.Summary, m.Summary)
	assert.True(t, built.BuiltAt.Equal(m.BuiltAt))
	assert.True(t, svc.Ready())

	res, err := svc.Query(ctx, "apples orchard", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "fruit.txt", res[0].Chunk.Source)
}

func TestLoadMissing(t *testing.T) {
	_, err := newTestService(filepath.Join(t.TempDir(), "none")).Load(context.Background())
	assert.ErrorIs(t, err, ErrNoIndex)
}

type renamedEmbedder struct{ *tfidf.Embedder }

func (renamedEmbedder) Name() string { return "other" }

func TestLoadRejectsDifferentEmbedder(t *testing.T) {
	ctx := context.Background()
	idx := filepath.Join(t.TempDir(), "idx")
	_, err := newTestService(idx).BuildDocuments(ctx, []domain.Document{loader.NewDocument("a.txt", "Rockets carry satellites.")})
	require.NoError(t, err)

	svc := NewRAGService(chunker.NewRecursiveSplitter(200, 0), renamedEmbedder{tfidf.NewEmbedder()}, memory.NewStorage(),
		summarizer.NewFrequencySummarizer(), Options{PersistDir: idx})
	_, err = svc.Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoIndex)
	assert.Contains(t, err.Error(), `"tfidf"`)
	assert.False(t, svc.Ready())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	idx := filepath.Join(t.TempDir(), "idx")
	svc := newTestService(idx)

	cleared, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.False(t, cleared)

	_, err = svc.BuildDocuments(ctx, []domain.Document{loader.NewDocument("a.txt", "Rockets carry satellites.")})
	require.NoError(t, err)

	cleared, err = svc.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.False(t, svc.Ready())
	assert.NoDirExists(t, idx)

	_, err = svc.Query(ctx, "rockets", 1)
	assert.ErrorIs(t, err, ErrNoIndex)

	cleared, err = svc.Clear(ctx)
	require.NoError(t, err)
	assert.False(t, cleared)
}
