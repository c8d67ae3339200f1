package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
	"github.com/jchaffin/call-analytics-pinecone/internal/vectorindex"
)

// RelatedContext is what the document search contributes to an analysis:
// the matched docs plus any products and keywords carried in their metadata.
type RelatedContext struct {
	Docs     []analysis.RelatedDoc
	Products []analysis.Product
	Keywords []analysis.Keyword
}

// DocSearcher finds documents related to a transcript. A failing searcher
// degrades the analysis (empty related context), never fails it.
type DocSearcher interface {
	Search(ctx context.Context, transcriptText string) (RelatedContext, error)
}

// DocRetriever searches the vector index's document namespace by transcript
// similarity.
type DocRetriever struct {
	embedder  genai.Embedder
	index     vectorindex.Index
	namespace string
	topK      int
}

// NewDocRetriever creates a DocRetriever. topK defaults to 5 when <= 0.
func NewDocRetriever(embedder genai.Embedder, index vectorindex.Index, namespace string, topK int) *DocRetriever {
	if topK <= 0 {
		topK = 5
	}
	return &DocRetriever{embedder: embedder, index: index, namespace: namespace, topK: topK}
}

// Search embeds the transcript and returns the topK most similar documents,
// lifting product and keyword fields out of their metadata.
func (r *DocRetriever) Search(ctx context.Context, transcriptText string) (RelatedContext, error) {
	vec, err := r.embedder.Embed(ctx, transcriptText)
	if err != nil {
		return RelatedContext{}, fmt.Errorf("embedding transcript for doc search: %w", err)
	}

	dim, err := r.index.DescribeDimension(ctx)
	if err != nil {
		return RelatedContext{}, fmt.Errorf("describing index dimension: %w", err)
	}
	vec = vectorindex.AdaptDimension(vec, dim)

	matches, err := r.index.Query(ctx, r.namespace, vec, r.topK, nil, true)
	if err != nil {
		return RelatedContext{}, fmt.Errorf("searching related docs: %w", err)
	}

	var rc RelatedContext
	for _, m := range matches {
		doc := analysis.RelatedDoc{ID: m.ID, Score: float64(m.Score)}
		if len(m.Metadata) > 0 {
			doc.Metadata = stringMetadata(m.Metadata)
		}
		rc.Docs = append(rc.Docs, doc)

		if name := m.Metadata.StringField("productName"); name != "" {
			id := m.Metadata.StringField("productId")
			if id == "" {
				id = name
			}
			rc.Products = append(rc.Products, analysis.Product{
				ID:       id,
				Name:     name,
				Score:    clampScore(float64(m.Score)),
				Brand:    m.Metadata.StringField("brand"),
				Category: m.Metadata.StringField("category"),
			})
		}

		if kwJSON := m.Metadata.StringField("keywords"); kwJSON != "" {
			var kws []analysis.Keyword
			if err := json.Unmarshal([]byte(kwJSON), &kws); err == nil {
				rc.Keywords = append(rc.Keywords, kws...)
			}
		}
	}
	return rc, nil
}

// stringMetadata keeps only the string-valued metadata fields.
func stringMetadata(meta vectorindex.Metadata) map[string]string {
	out := make(map[string]string)
	for key, val := range meta {
		if s, ok := val.(string); ok {
			out[key] = s
		}
	}
	return out
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
