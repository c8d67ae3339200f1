package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/vectorindex"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}

type fakeIndex struct {
	dimension  int
	upserted   []vectorindex.Record
	namespace  string
	upsertErr  error
	queryResp  []vectorindex.Match
	queryCalls int
}

func (f *fakeIndex) DescribeDimension(ctx context.Context) (int, error) {
	return f.dimension, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, namespace string, records []vectorindex.Record) error {
	f.namespace = namespace
	f.upserted = append(f.upserted, records...)
	return f.upsertErr
}

func (f *fakeIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter vectorindex.Filter, includeMetadata bool) ([]vectorindex.Match, error) {
	f.queryCalls++
	return f.queryResp, nil
}

func testRecord() *analysis.AnalysisRecord {
	rec, err := analysis.ValidateFinal(analysis.Candidate{
		CallType:        "Automated",
		SuccessCategory: "Successful",
		Intent:          "Check order status",
		IntentCategory:  "Order Management",
		Confidence:      0.9,
		Summary:         "Customer checked an order.",
		KeyPoints:       []string{"order located"},
		Products:        []analysis.Product{{ID: "router-x", Name: "Router X", Score: 0.9}},
		Keywords:        []analysis.Keyword{{Term: "order", Score: 0.7}},
	})
	if err != nil {
		panic(err)
	}
	return rec
}

func TestRecordID_Stable(t *testing.T) {
	a := RecordID("the same transcript")
	b := RecordID("the same transcript")
	if a != b {
		t.Errorf("ids differ for identical transcripts: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("id length = %d, want 64 hex chars", len(a))
	}
	if a == RecordID("a different transcript") {
		t.Error("different transcripts produced the same id")
	}
}

func TestWrite_UpsertsAdaptedVector(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 2, 3, 4, 5}}
	idx := &fakeIndex{dimension: 3}
	w := NewWriter(emb, idx, "calls")

	id, err := w.Write(context.Background(), "customer called about an order", testRecord(), "gpt-test")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if id != RecordID("customer called about an order") {
		t.Errorf("id = %s, want content hash", id)
	}

	if idx.namespace != "calls" {
		t.Errorf("namespace = %q", idx.namespace)
	}
	if len(idx.upserted) != 1 {
		t.Fatalf("upserted %d records", len(idx.upserted))
	}
	rec := idx.upserted[0]
	if len(rec.Values) != 3 {
		t.Errorf("vector dimension = %d, want adapted to 3", len(rec.Values))
	}

	meta := rec.Metadata
	if meta.StringField("intent") != "Check order status" {
		t.Errorf("intent metadata = %v", meta["intent"])
	}
	if meta.StringField("callType") != "Automated" {
		t.Errorf("callType metadata = %v", meta["callType"])
	}
	if meta["transcriptLength"] != len("customer called about an order") {
		t.Errorf("transcriptLength = %v", meta["transcriptLength"])
	}

	// Product list must round-trip through its JSON string form.
	var products []analysis.Product
	if err := json.Unmarshal([]byte(meta.StringField("products")), &products); err != nil {
		t.Fatalf("products metadata does not parse: %v", err)
	}
	if len(products) != 1 || products[0].ID != "router-x" {
		t.Errorf("products = %+v", products)
	}
}

func TestWrite_UpsertFailurePropagates(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1}}
	idx := &fakeIndex{dimension: 1, upsertErr: errors.New("index down")}
	w := NewWriter(emb, idx, "calls")

	if _, err := w.Write(context.Background(), "some transcript", testRecord(), "gpt-test"); err == nil {
		t.Fatal("expected error from failing upsert")
	}
}
