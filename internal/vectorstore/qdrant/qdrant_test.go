package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragagent/internal/domain"
)

type point struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// fakeQdrant implements the handful of REST endpoints Storage uses.
type fakeQdrant struct {
	mu     sync.Mutex
	size   int
	exists bool
	points map[string]point
	apiKey string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = r.Header.Get("api-key")
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/collections/docs")
	switch {
	case r.Method == http.MethodPut && path == "":
		if f.exists {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"status":{"error":"Collection docs already exists"}}`))
			return
		}
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.size, f.exists, f.points = body.Vectors.Size, true, map[string]point{}
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodGet && path == "":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": f.size}}}},
		})
	case r.Method == http.MethodDelete && path == "":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.exists, f.points = false, nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && path == "/points":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection docs doesn't exist!"}}`))
			return
		}
		var body struct {
			Points []point `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			if _, err := uuid.Parse(p.ID); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"status":{"error":"bad id"}}`))
				return
			}
			f.points[p.ID] = p
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && path == "/points/search":
		var body struct {
			Vector []float64 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type hit struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		}
		var hits []hit
		for _, p := range f.points {
			s := 0.0
			for i := range p.Vector {
				s += p.Vector[i] * body.Vector[i]
			}
			hits = append(hits, hit{Score: s, Payload: p.Payload})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		if len(hits) > body.Limit {
			hits = hits[:body.Limit]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": hits})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newStorage(t *testing.T) (*Storage, *fakeQdrant, string) {
	t.Helper()
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "docs"}), fake, srv.URL
}

func TestStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	s, fake, url := newStorage(t)
	assert.Equal(t, "qdrant", s.Name())

	require.ErrorIs(t, s.Attach(ctx), ErrCollectionNotFound)
	require.NoError(t, s.Clear(ctx), "deleting a missing collection is fine")

	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Init(ctx, 2), "existing collection is reused")
	assert.Equal(t, "secret", fake.apiKey)

	chunks := []domain.Chunk{
		{DocumentID: "d", ChunkID: "d:0", Source: "a.txt", Text: "alpha", Index: 0},
		{DocumentID: "d", ChunkID: "d:1", Source: "a.txt", Text: "beta", Index: 1},
	}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float64{{1, 0}, {0, 1}}))

	res, err := s.Search(ctx, []float64{0.1, 0.9}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, chunks[1], res[0].Chunk)
	assert.InDelta(t, 0.9, res[0].Score, 1e-9)

	other := NewStorage(Config{URL: url, Collection: "docs"})
	require.NoError(t, other.Attach(ctx))
	assert.Equal(t, 2, other.Dimension())

	require.NoError(t, s.Clear(ctx))
	err = s.Upsert(ctx, chunks, [][]float64{{1, 0}, {0, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestPointIDIsStableUUID(t *testing.T) {
	a := PointID("doc:1")
	assert.Equal(t, a, PointID("doc:1"))
	assert.NotEqual(t, a, PointID("doc:2"))
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestUpsertLengthMismatch(t *testing.T) {
	s, _, _ := newStorage(t)
	assert.Error(t, s.Upsert(context.Background(), []domain.Chunk{{}}, nil))
	assert.Error(t, s.Init(context.Background(), 0))
}
