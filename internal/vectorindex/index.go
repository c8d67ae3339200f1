// Package vectorindex is the boundary to the vector index service: a
// namespaced store of fixed-dimension vectors with filterable metadata.
// The production backend is a Pinecone serverless index; a SQLite-backed
// implementation provides an offline mode and the test backend.
package vectorindex

import "context"

// Metadata holds the fields attached to a stored vector. Values are JSON
// scalars or strings holding serialized JSON (product/keyword lists).
type Metadata map[string]any

// Filter restricts a query to records whose metadata fields equal the given
// values. An empty filter matches everything.
type Filter map[string]string

// Record is one vector plus metadata, keyed by a caller-chosen id.
type Record struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Match is a query hit. Score is the index's similarity score; Metadata is
// nil unless the query asked for it.
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Index is the vector index service contract. Upsert is idempotent per id;
// callers must not assume a write is visible to an immediately following
// Query (consistency is the backend's concern).
type Index interface {
	// DescribeDimension returns the index's fixed vector dimensionality.
	DescribeDimension(ctx context.Context) (int, error)

	// Upsert inserts or replaces records in the given namespace.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Query returns the topK records most similar to vector, optionally
	// restricted by an equality filter on metadata fields.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter Filter, includeMetadata bool) ([]Match, error)
}

// StringField returns a metadata field as a string, or "" when absent or
// not a string.
func (m Metadata) StringField(key string) string {
	s, _ := m[key].(string)
	return s
}
