package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Compile-time check that PineconeIndex implements Index.
var _ Index = (*PineconeIndex)(nil)

// PineconeIndex talks to a Pinecone serverless index over its data-plane
// HTTP API. Transient failures (5xx, network) are retried with exponential
// backoff; 4xx responses fail immediately.
type PineconeIndex struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

// NewPinecone creates a client for the index served at host (the per-index
// data-plane endpoint, e.g. "https://calls-abc123.svc.us-east-1.pinecone.io").
func NewPinecone(host, apiKey string) *PineconeIndex {
	return &PineconeIndex{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type pineconeVector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Namespace       string         `json:"namespace,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string   `json:"id"`
		Score    float32  `json:"score"`
		Metadata Metadata `json:"metadata"`
	} `json:"matches"`
}

type indexStatsResponse struct {
	Dimension int `json:"dimension"`
}

// DescribeDimension queries the index stats endpoint for the index's fixed
// vector dimensionality.
func (p *PineconeIndex) DescribeDimension(ctx context.Context) (int, error) {
	body, err := p.post(ctx, "/describe_index_stats", map[string]any{})
	if err != nil {
		return 0, fmt.Errorf("describing index: %w", err)
	}
	var stats indexStatsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		return 0, fmt.Errorf("decoding index stats: %w", err)
	}
	return stats.Dimension, nil
}

// Upsert writes records into the given namespace.
func (p *PineconeIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	vectors := make([]pineconeVector, len(records))
	for i, r := range records {
		vectors[i] = pineconeVector{ID: r.ID, Values: r.Values, Metadata: r.Metadata}
	}
	if _, err := p.post(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors, Namespace: namespace}); err != nil {
		return fmt.Errorf("upserting %d vectors: %w", len(records), err)
	}
	return nil
}

// Query returns the topK most similar records in the namespace.
func (p *PineconeIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter Filter, includeMetadata bool) ([]Match, error) {
	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		Filter:          pineconeFilter(filter),
		IncludeMetadata: includeMetadata,
	}
	body, err := p.post(ctx, "/query", req)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	matches := make([]Match, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return matches, nil
}

// pineconeFilter translates an equality filter to Pinecone's $eq syntax.
func pineconeFilter(filter Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any, len(filter))
	for key, val := range filter {
		out[key] = map[string]any{"$eq": val}
	}
	return out
}

// transientError marks a response worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// post sends a JSON request and returns the response body. 5xx and network
// errors are retried with exponential backoff for up to 15 seconds.
func (p *PineconeIndex) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Api-Key", p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return &transientError{err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return &transientError{fmt.Errorf("reading response: %w", err)}
		}

		switch {
		case resp.StatusCode >= 500:
			return &transientError{fmt.Errorf("index server error %d: %s", resp.StatusCode, respBody)}
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("index returned status %d: %s", resp.StatusCode, respBody))
		}

		body = respBody
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 15 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
