package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// ErrUnauthorized indicates invalid or missing service credentials. It is
// terminal for the request; callers must not retry.
var ErrUnauthorized = errors.New("generation service rejected credentials")

// Generator produces a schema-conforming JSON object from a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error)
}

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateRequest is one structured-generation call.
type GenerateRequest struct {
	Model      string
	System     string
	Prompt     string
	SchemaName string
	Schema     *Schema
}

// maxEmbedBatch is the largest input list sent in one embeddings request;
// larger batches are chunked and fetched concurrently.
const maxEmbedBatch = 96

// Client speaks the OpenAI-compatible chat-completions and embeddings API.
type Client struct {
	baseURL    string
	apiKey     string
	embedModel string
	httpClient *http.Client
}

// NewClient creates a Client for the service at baseURL. embedModel is the
// model used for all embedding calls; generation models are chosen per
// request from the configured catalog.
func NewClient(baseURL, apiKey, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate runs one structured-generation call and validates the returned
// object against req.Schema. Transport-level failures are retried with
// backoff; a schema violation is returned as *SchemaValidationError without
// retrying — the retry-with-stricter-prompt policy belongs to the caller.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	payload := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: 0,
	}
	if req.Schema != nil {
		payload.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.SchemaName,
				"schema": req.Schema,
				"strict": true,
			},
		}
	}

	body, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion response has no choices")
	}

	raw, err := extractJSONObject(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &SchemaValidationError{Violations: []string{err.Error()}}
	}
	if req.Schema != nil {
		if verr := ValidateAgainstSchema(raw, req.Schema); verr != nil {
			return nil, verr
		}
	}
	return raw, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embedChunk(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input text. Inputs beyond maxEmbedBatch
// are split into chunks fetched concurrently with bounded parallelism.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(texts); start += maxEmbedBatch {
		start := start
		end := min(start+maxEmbedBatch, len(texts))
		g.Go(func() error {
			vecs, err := c.embedChunk(gCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
			}
			copy(results[start:], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := c.post(ctx, "/embeddings", embeddingsRequest{Model: c.embedModel, Input: texts})
	if err != nil {
		return nil, err
	}

	var resp embeddingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		vecs[d.Index] = vec
	}
	return vecs, nil
}

// post sends a JSON request and returns the response body. 5xx and network
// errors are retried with exponential backoff; 401/403 map to
// ErrUnauthorized and other 4xx fail immediately.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode))
		case resp.StatusCode >= 500:
			return fmt.Errorf("service error %d: %s", resp.StatusCode, respBody)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("service returned status %d: %s", resp.StatusCode, respBody))
		}

		body = respBody
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// extractJSONObject pulls the first JSON object out of model output that may
// be wrapped in markdown code fences or conversational filler.
func extractJSONObject(content string) (json.RawMessage, error) {
	s := strings.TrimSpace(content)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	return json.RawMessage(s[start : end+1]), nil
}
