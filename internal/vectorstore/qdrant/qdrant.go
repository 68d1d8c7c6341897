package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"ragagent/internal/domain"
)

// ErrCollectionNotFound is returned by Attach when the collection is absent.
var ErrCollectionNotFound = errors.New("qdrant collection not found")

const upsertBatch = 256

// Storage is a minimal REST client to Qdrant.
// Collections are created on Init and dropped on Clear.
type Storage struct {
	http       *resty.Client
	collection string
	distance   string
	dimension  int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Distance   string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		hc.SetHeader("api-key", cfg.APIKey)
	}
	return &Storage{http: hc, collection: cfg.Collection, distance: cfg.Distance}
}

func (s *Storage) Name() string { return "qdrant" }

// PointID maps a chunk id to the UUID Qdrant stores it under. Qdrant only
// accepts unsigned integers and UUIDs as point ids.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func (s *Storage) collectionPath() string { return "/collections/" + s.collection }

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distance,
		},
	}
	resp, err := s.http.R().SetContext(ctx).SetBody(body).Put(s.collectionPath())
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	if resp.StatusCode() == http.StatusConflict || (resp.IsError() && strings.Contains(string(resp.Body()), "already exists")) {
		return nil
	}
	return checkStatus(resp, "create collection")
}

// Attach connects to an existing collection and learns its dimension.
func (s *Storage) Attach(ctx context.Context) error {
	resp, err := s.http.R().SetContext(ctx).Get(s.collectionPath())
	if err != nil {
		return fmt.Errorf("qdrant get collection: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, s.collection)
	}
	if err := checkStatus(resp, "get collection"); err != nil {
		return err
	}
	info, err := gabs.ParseJSON(resp.Body())
	if err != nil {
		return fmt.Errorf("qdrant get collection: %w", err)
	}
	if size, ok := info.Path("result.config.params.vectors.size").Data().(float64); ok {
		s.dimension = int(size)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	for start := 0; start < len(chunks); start += upsertBatch {
		end := min(start+upsertBatch, len(chunks))
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, map[string]any{
				"id":     PointID(chunks[i].ChunkID),
				"vector": vectors[i],
				"payload": map[string]any{
					"document_id": chunks[i].DocumentID,
					"chunk_id":    chunks[i].ChunkID,
					"source":      chunks[i].Source,
					"index":       chunks[i].Index,
					"text":        chunks[i].Text,
				},
			})
		}
		resp, err := s.http.R().
			SetContext(ctx).
			SetQueryParam("wait", "true").
			SetBody(map[string]any{"points": points}).
			Put(s.collectionPath() + "/points")
		if err != nil {
			return fmt.Errorf("qdrant upsert: %w", err)
		}
		if err := checkStatus(resp, "upsert"); err != nil {
			return err
		}
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var out searchResponse
	resp, err := s.http.R().SetContext(ctx).SetBody(req).SetResult(&out).Post(s.collectionPath() + "/points/search")
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	if err := checkStatus(resp, "search"); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(out.Result))
	for _, r := range out.Result {
		chunk, err := decodePayload(r.Payload)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	resp, err := s.http.R().SetContext(ctx).Delete(s.collectionPath())
	if err != nil {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	return checkStatus(resp, "delete collection")
}

// Dimension reports the vector size learned from Init or Attach.
func (s *Storage) Dimension() int { return s.dimension }

func decodePayload(payload map[string]any) (domain.Chunk, error) {
	var chunk domain.Chunk
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &chunk,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return chunk, err
	}
	if err := dec.Decode(payload); err != nil {
		return chunk, fmt.Errorf("decode qdrant payload: %w", err)
	}
	return chunk, nil
}

func checkStatus(resp *resty.Response, op string) error {
	if !resp.IsError() {
		return nil
	}
	msg := resp.Status()
	if body, err := gabs.ParseJSON(resp.Body()); err == nil {
		if e, ok := body.Path("status.error").Data().(string); ok {
			msg += ": " + e
		}
	}
	return fmt.Errorf("qdrant %s failed: %s", op, msg)
}
