// Package api exposes call analysis over an OpenAI-style REST surface and an
// MCP server. Errors are returned as {"error": {"message", "type"}} envelopes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/clustering"
	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
	"github.com/jchaffin/call-analytics-pinecone/internal/ingest"
	"github.com/jchaffin/call-analytics-pinecone/internal/pipeline"
	"github.com/jchaffin/call-analytics-pinecone/internal/transcript"
)

const maxAnalyzeBodySize = 10 << 20 // 10MB

// Analyzer runs the full analysis pipeline over one transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcriptText, modelID string) (*analysis.AnalysisRecord, error)
}

// Clusterer groups stored call intents by embedding similarity.
type Clusterer interface {
	ClusterIntents(ctx context.Context, threshold float64, limit int) (*clustering.Report, error)
}

// DocIngester indexes reference documents for related-document search.
type DocIngester interface {
	IngestDoc(ctx context.Context, doc ingest.Doc) (string, error)
}

type Deps struct {
	Analyzer         Analyzer
	Clusterer        Clusterer
	Ingester         DocIngester // optional; nil disables POST /v1/docs
	DefaultModel     string
	DefaultThreshold float64
	DefaultLimit     int
	Token            string // optional; empty disables bearer auth
	Logger           *slog.Logger
}

func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestLogger(deps.Logger))

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/v1/analyze", handleAnalyze(deps))
		r.Post("/v1/validate", handleValidate())
		r.Get("/v1/intent-clusters", handleIntentClusters(deps))
		if deps.Ingester != nil {
			r.Post("/v1/docs", handleIngestDoc(deps))
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	Model      string `json:"model"`
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBodySize)
		defer r.Body.Close()

		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Transcript == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "transcript is required")
			return
		}
		if req.Model == "" {
			req.Model = deps.DefaultModel
		}

		rec, err := deps.Analyzer.Analyze(r.Context(), transcript.Sanitize(req.Transcript), req.Model)
		if err != nil {
			writeAnalysisError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

// handleValidate re-runs normalization and validation over a caller-supplied
// analysis payload without touching the model or storage.
func handleValidate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBodySize)
		defer r.Body.Close()

		var raw analysis.RawPayload
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		cand := analysis.Normalize(analysis.CandidateFromRaw(raw))
		rec, err := analysis.ValidateFinal(cand)
		if err != nil {
			var verr *analysis.ValidationError
			if errors.As(err, &verr) {
				writeValidationError(w, verr)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "validation failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"valid":  true,
			"record": rec,
		})
	}
}

func handleIngestDoc(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBodySize)
		defer r.Body.Close()

		var doc ingest.Doc
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if doc.Content == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}
		doc.Content = transcript.Sanitize(doc.Content)

		id, err := deps.Ingester.IngestDoc(r.Context(), doc)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to index document: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     id,
			"status": "indexed",
		})
	}
}

func handleIntentClusters(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold, err := parseFloatParam(r, "threshold", deps.DefaultThreshold)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		limit, err := parseIntParam(r, "limit", deps.DefaultLimit)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if threshold <= 0 || threshold >= 1 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "threshold must be strictly between 0 and 1, got %g", threshold)
			return
		}
		if limit <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be positive, got %d", limit)
			return
		}

		report, err := deps.Clusterer.ClusterIntents(r.Context(), threshold, limit)
		if err != nil {
			if errors.Is(err, clustering.ErrTimeout) {
				httpError(w, http.StatusGatewayTimeout, "timeout_error", "intent clustering timed out")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "clustering failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	var badReq *pipeline.BadRequestError
	var verr *analysis.ValidationError
	var passErr *pipeline.PassError

	switch {
	case errors.As(err, &badReq):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", badReq.Reason)
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.As(err, &passErr):
		if errors.Is(err, genai.ErrUnauthorized) {
			httpError(w, http.StatusBadGateway, "authentication_error", "upstream rejected credentials during %s pass", passErr.Pass)
			return
		}
		var schemaErr *genai.SchemaValidationError
		if errors.As(err, &schemaErr) {
			httpError(w, http.StatusBadGateway, "generation_error", "%s pass output failed schema validation: %s",
				passErr.Pass, strings.Join(schemaErr.Violations, "; "))
			return
		}
		httpError(w, http.StatusBadGateway, "generation_error", "%s pass failed: %v", passErr.Pass, passErr.Err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "analysis failed: %v", err)
	}
}

func writeValidationError(w http.ResponseWriter, verr *analysis.ValidationError) {
	fields := make([]map[string]string, len(verr.Fields))
	for i, f := range verr.Fields {
		fields[i] = map[string]string{"field": f.Field, "reason": f.Reason}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": verr.Error(),
			"type":    "invariant_violation",
			"fields":  fields,
		},
	})
}

func parseFloatParam(r *http.Request, key string, defaultVal float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}

func parseIntParam(r *http.Request, key string, defaultVal int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
