// Package ingest writes reference documents into the vector index's document
// namespace, where related-document search picks them up during analysis.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
	"github.com/jchaffin/call-analytics-pinecone/internal/vectorindex"
)

// Doc is a reference document to index: a knowledge-base article, product
// sheet, or policy page. Product fields and keywords are carried as metadata
// and surface on matching analyses.
type Doc struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	ProductID   string             `json:"productId,omitempty"`
	ProductName string             `json:"productName,omitempty"`
	Brand       string             `json:"brand,omitempty"`
	Category    string             `json:"category,omitempty"`
	Keywords    []analysis.Keyword `json:"keywords,omitempty"`
}

type Ingester struct {
	embedder  genai.Embedder
	index     vectorindex.Index
	namespace string
}

func NewIngester(embedder genai.Embedder, index vectorindex.Index, namespace string) *Ingester {
	return &Ingester{embedder: embedder, index: index, namespace: namespace}
}

// IngestDoc embeds the document and upserts it into the document namespace,
// returning its id. A missing id gets a generated one; re-ingesting with the
// same id replaces the stored vector and metadata.
func (i *Ingester) IngestDoc(ctx context.Context, doc Doc) (string, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return "", fmt.Errorf("document content is empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	text := doc.Content
	if doc.Title != "" {
		text = doc.Title + "\n" + text
	}
	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embedding document: %w", err)
	}

	dim, err := i.index.DescribeDimension(ctx)
	if err != nil {
		return "", fmt.Errorf("describing index dimension: %w", err)
	}
	vec = vectorindex.AdaptDimension(vec, dim)

	meta, err := docMetadata(doc)
	if err != nil {
		return "", err
	}

	rec := vectorindex.Record{ID: doc.ID, Values: vec, Metadata: meta}
	if err := i.index.Upsert(ctx, i.namespace, []vectorindex.Record{rec}); err != nil {
		return "", fmt.Errorf("upserting document: %w", err)
	}
	return doc.ID, nil
}

func docMetadata(doc Doc) (vectorindex.Metadata, error) {
	meta := vectorindex.Metadata{}
	if doc.Title != "" {
		meta["title"] = doc.Title
	}
	if doc.ProductName != "" {
		meta["productName"] = doc.ProductName
		if doc.ProductID != "" {
			meta["productId"] = doc.ProductID
		}
		if doc.Brand != "" {
			meta["brand"] = doc.Brand
		}
		if doc.Category != "" {
			meta["category"] = doc.Category
		}
	}
	if len(doc.Keywords) > 0 {
		b, err := json.Marshal(doc.Keywords)
		if err != nil {
			return nil, fmt.Errorf("marshalling keywords: %w", err)
		}
		meta["keywords"] = string(b)
	}
	return meta, nil
}
