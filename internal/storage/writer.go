// Package storage persists analyzed calls into the vector index. A call is
// keyed by a content hash of its transcript, so re-analyzing the same
// transcript overwrites the previous record instead of duplicating it.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
	"github.com/jchaffin/call-analytics-pinecone/internal/vectorindex"
)

// Writer embeds transcripts and upserts them with analysis metadata.
type Writer struct {
	embedder  genai.Embedder
	index     vectorindex.Index
	namespace string
}

// NewWriter creates a Writer targeting the given index namespace.
func NewWriter(embedder genai.Embedder, index vectorindex.Index, namespace string) *Writer {
	return &Writer{embedder: embedder, index: index, namespace: namespace}
}

// RecordID returns the content-addressed identifier for a transcript:
// the hex SHA-256 of its text. Stable across repeated calls, which makes
// re-analysis idempotent.
func RecordID(transcriptText string) string {
	sum := sha256.Sum256([]byte(transcriptText))
	return hex.EncodeToString(sum[:])
}

// Write embeds the transcript, adapts the vector to the index dimension, and
// upserts it with the record's fields as filterable metadata. It returns the
// record id; absence of an error is the only success signal — the write may
// not be visible to an immediately following query.
func (w *Writer) Write(ctx context.Context, transcriptText string, rec *analysis.AnalysisRecord, model string) (string, error) {
	id := RecordID(transcriptText)

	vec, err := w.embedder.Embed(ctx, transcriptText)
	if err != nil {
		return "", fmt.Errorf("embedding transcript: %w", err)
	}

	dim, err := w.index.DescribeDimension(ctx)
	if err != nil {
		return "", fmt.Errorf("describing index dimension: %w", err)
	}
	vec = vectorindex.AdaptDimension(vec, dim)

	metadata, err := buildMetadata(rec, model, len(transcriptText))
	if err != nil {
		return "", err
	}

	record := vectorindex.Record{ID: id, Values: vec, Metadata: metadata}
	if err := w.index.Upsert(ctx, w.namespace, []vectorindex.Record{record}); err != nil {
		return "", fmt.Errorf("upserting call record: %w", err)
	}
	return id, nil
}

// buildMetadata flattens the record into index metadata. Scalar tags stay
// scalar so they remain filterable; product and keyword lists are stored as
// JSON strings (they round-trip losslessly but are not filter targets).
func buildMetadata(rec *analysis.AnalysisRecord, model string, transcriptLength int) (vectorindex.Metadata, error) {
	productsJSON, err := json.Marshal(rec.Products)
	if err != nil {
		return nil, fmt.Errorf("marshalling products: %w", err)
	}
	keywordsJSON, err := json.Marshal(rec.Keywords)
	if err != nil {
		return nil, fmt.Errorf("marshalling keywords: %w", err)
	}

	return vectorindex.Metadata{
		"intent":           rec.Intent,
		"intentCategory":   rec.IntentCategory,
		"callType":         string(rec.CallType),
		"successCategory":  string(rec.SuccessCategory),
		"summary":          rec.Summary,
		"confidence":       rec.Confidence,
		"products":         string(productsJSON),
		"keywords":         string(keywordsJSON),
		"model":            model,
		"analyzedAt":       time.Now().UTC().Format(time.RFC3339),
		"transcriptLength": transcriptLength,
	}, nil
}
