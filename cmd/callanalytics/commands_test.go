package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/clustering"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestAnalyzeRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/analyze": `{
			"callType": "Automated",
			"successCategory": "Successful",
			"intent": "Check order status",
			"intentCategory": "Orders",
			"confidence": 0.92,
			"summary": "Customer asked about a delivery.",
			"keyPoints": ["order placed last week"],
			"storageRecordId": "abc123"
		}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/v1/analyze", map[string]any{
		"transcript": "Customer: hi, where is my order?",
		"model":      "gpt-4o",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rec analysis.AnalysisRecord
	if err := decodeJSON(resp, &rec); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if rec.CallType != analysis.CallTypeAutomated {
		t.Errorf("callType = %q", rec.CallType)
	}
	if rec.StorageRecordID != "abc123" {
		t.Errorf("storageRecordId = %q", rec.StorageRecordID)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(ts.requests))
	}
	req := ts.requests[0]
	if req.Auth != "Bearer test-token" {
		t.Errorf("auth header = %q", req.Auth)
	}
	if !strings.Contains(req.Body, `"model":"gpt-4o"`) {
		t.Errorf("request body missing model: %s", req.Body)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().post(ctx, "/v1/analyze", map[string]any{"transcript": "x"})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var rec analysis.AnalysisRecord
	err = decodeJSON(resp, &rec)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q does not mention status", err)
	}
}

func TestClusterRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/intent-clusters": `{
			"totalIntents": 5,
			"totalClusters": 2,
			"avgIntentsPerCluster": 2.5,
			"clusters": [
				{"primary": "Check order status", "totalCount": 3, "variations": 2}
			]
		}`,
	})

	resp, err := ts.client().get(ctx, "/v1/intent-clusters?threshold=0.9&limit=500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report clustering.Report
	if err := decodeJSON(resp, &report); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if report.TotalClusters != 2 {
		t.Errorf("totalClusters = %d", report.TotalClusters)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(ts.requests))
	}
	if got := ts.requests[0].Path; got != "/v1/intent-clusters?threshold=0.9&limit=500" {
		t.Errorf("path = %q", got)
	}
}

func TestReadTranscriptFilePlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "call.txt")
	if err := os.WriteFile(path, []byte("Customer: hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := readTranscriptFile(path)
	if err != nil {
		t.Fatalf("readTranscriptFile: %v", err)
	}
	if text != "Customer: hello" {
		t.Errorf("text = %q", text)
	}
}

func TestReadTranscriptFileMissing(t *testing.T) {
	if _, err := readTranscriptFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})
	client := ts.client()
	client.token = ""

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var status map[string]string
	if err := decodeJSON(resp, &status); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if ts.requests[0].Auth != "" {
		t.Errorf("auth header sent without token: %q", ts.requests[0].Auth)
	}
}
