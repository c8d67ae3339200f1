// Package clustering groups the distinct intents seen across stored calls by
// embedding similarity. The algorithm is a greedy single-linkage
// approximation with count-weighted centroids: deterministic for a given
// input order and threshold, not provably optimal.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
	"github.com/jchaffin/call-analytics-pinecone/internal/vectorindex"
)

// ErrTimeout indicates clustering exceeded its time budget. The caller gets
// this error instead of a partial cluster set.
var ErrTimeout = errors.New("intent clustering exceeded its time budget")

const defaultTimeout = 30 * time.Second

// Member is one intent inside a cluster with its call count.
type Member struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

// Cluster is a group of near-duplicate intents. Primary is the most frequent
// member; Members are sorted by descending count; Variations is the member
// count. Clusters are built per request and never persisted.
type Cluster struct {
	Primary    string   `json:"primary"`
	Members    []Member `json:"members"`
	TotalCount int      `json:"totalCount"`
	Variations int      `json:"variations"`

	centroid []float32
}

// Report is the result of one clustering run.
type Report struct {
	TotalIntents         int       `json:"totalIntents"`
	TotalClusters        int       `json:"totalClusters"`
	AvgIntentsPerCluster float64   `json:"avgIntentsPerCluster"`
	Clusters             []Cluster `json:"clusters"`
}

// Engine pulls stored intents from the vector index, embeds them, and merges
// the similar ones.
type Engine struct {
	index     vectorindex.Index
	embedder  genai.Embedder
	namespace string
	timeout   time.Duration
}

// NewEngine creates an Engine reading call metadata from the given index
// namespace. A non-positive timeout selects the default budget.
func NewEngine(index vectorindex.Index, embedder genai.Embedder, namespace string, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Engine{index: index, embedder: embedder, namespace: namespace, timeout: timeout}
}

// ClusterIntents scans up to limit stored call records, counts distinct
// intents, embeds them, and greedily merges intents whose centroid cosine
// similarity is at least threshold. Fewer stored records than limit is not
// an error; exceeding the time budget is (ErrTimeout, no partial result).
func (e *Engine) ClusterIntents(ctx context.Context, threshold float64, limit int) (*Report, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be within (0,1), got %g", threshold)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	intents, counts, err := e.fetchIntentCounts(ctx, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	totalIntents := len(intents)
	if totalIntents == 0 {
		return &Report{Clusters: []Cluster{}}, nil
	}

	embeddings, err := e.embedder.EmbedBatch(ctx, intents)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("embedding %d intents: %w", totalIntents, err)
	}

	// One cluster per distinct intent, in first-seen order.
	clusters := make([]Cluster, totalIntents)
	for i, intent := range intents {
		count := counts[intent]
		clusters[i] = Cluster{
			Primary:    intent,
			Members:    []Member{{Intent: intent, Count: count}},
			TotalCount: count,
			centroid:   embeddings[i],
		}
	}

	merged, err := mergeClusters(ctx, clusters, threshold)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].TotalCount > merged[j].TotalCount
	})
	for i := range merged {
		merged[i].Variations = len(merged[i].Members)
		merged[i].centroid = nil
	}

	avg := float64(totalIntents) / float64(len(merged))
	report := &Report{
		TotalIntents:         totalIntents,
		TotalClusters:        len(merged),
		AvgIntentsPerCluster: math.Round(avg*100) / 100,
		Clusters:             merged,
	}

	slog.Debug("intent clustering complete",
		"intents", totalIntents,
		"clusters", len(merged),
		"threshold", threshold,
	)
	return report, nil
}

// fetchIntentCounts does a metadata-only scan of the call namespace using a
// zero placeholder vector (the query vector is irrelevant for a scan) and
// tallies occurrences per distinct intent. Returns intents in first-seen
// order so clustering stays deterministic.
func (e *Engine) fetchIntentCounts(ctx context.Context, limit int) ([]string, map[string]int, error) {
	dim, err := e.index.DescribeDimension(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("describing index dimension: %w", err)
	}
	placeholder := make([]float32, dim)

	matches, err := e.index.Query(ctx, e.namespace, placeholder, limit, nil, true)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning call metadata: %w", err)
	}

	var intents []string
	counts := make(map[string]int)
	for _, m := range matches {
		intent, ok := m.Metadata["intent"].(string)
		if !ok {
			continue
		}
		if _, seen := counts[intent]; !seen {
			intents = append(intents, intent)
		}
		counts[intent]++
	}
	return intents, counts, nil
}

// mergeClusters greedily merges cluster pairs whose centroid similarity
// meets the threshold. Clusters live in an indexed arena with retired slots
// marked rather than spliced out, and the pairwise scan restarts from the
// top after every merge until a full scan finds no mergeable pair.
func mergeClusters(ctx context.Context, arena []Cluster, threshold float64) ([]Cluster, error) {
	retired := make([]bool, len(arena))

	for {
		if err := ctx.Err(); err != nil {
			return nil, ErrTimeout
		}

		merged := false
	scan:
		for i := 0; i < len(arena); i++ {
			if retired[i] {
				continue
			}
			for j := i + 1; j < len(arena); j++ {
				if retired[j] {
					continue
				}
				if cosineSimilarity(arena[i].centroid, arena[j].centroid) >= threshold {
					absorb(&arena[i], &arena[j])
					retired[j] = true
					merged = true
					break scan
				}
			}
		}

		if !merged {
			break
		}
	}

	out := make([]Cluster, 0, len(arena))
	for i, c := range arena {
		if !retired[i] {
			out = append(out, c)
		}
	}
	return out, nil
}

// absorb merges src into dst: members are concatenated and re-sorted by
// descending count (stable, so earlier-inserted members win ties), the
// primary becomes the top member, and the centroid is the count-weighted
// average of both centroids. Weights are captured before either side's
// totals change.
func absorb(dst, src *Cluster) {
	dstWeight := float64(dst.TotalCount)
	srcWeight := float64(src.TotalCount)
	total := dstWeight + srcWeight

	dst.Members = append(dst.Members, src.Members...)
	sort.SliceStable(dst.Members, func(i, j int) bool {
		return dst.Members[i].Count > dst.Members[j].Count
	})
	dst.TotalCount += src.TotalCount
	dst.Primary = dst.Members[0].Intent

	if total > 0 {
		centroid := make([]float32, len(dst.centroid))
		for i := range centroid {
			var srcComponent float64
			if i < len(src.centroid) {
				srcComponent = float64(src.centroid[i])
			}
			centroid[i] = float32((float64(dst.centroid[i])*dstWeight + srcComponent*srcWeight) / total)
		}
		dst.centroid = centroid
	}
}

// cosineSimilarity computes dot(a,b)/(‖a‖·‖b‖); 0 when either vector is
// all-zero or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, aNormSq, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aNormSq += float64(a[i]) * float64(a[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if aNormSq == 0 || bNormSq == 0 {
		return 0
	}
	return dot / (math.Sqrt(aNormSq) * math.Sqrt(bNormSq))
}
