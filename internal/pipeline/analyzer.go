// Package pipeline runs the two model passes over a call transcript and
// composes their outputs into a validated analysis record.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
	"github.com/jchaffin/call-analytics-pinecone/internal/transcript"
)

// BadRequestError reports input the pipeline refuses to analyze: a transcript
// that is too short or a model id outside the catalog.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}

// ModelInfo identifies a chat model the pipeline may run passes on.
type ModelInfo struct {
	Provider string
	Name     string
}

// ModelCatalog maps public model ids onto provider models. It is built once
// at startup and never mutated afterwards.
type ModelCatalog map[string]ModelInfo

// Resolve looks up a model id, returning a BadRequestError for unknown ids.
func (c ModelCatalog) Resolve(id string) (ModelInfo, error) {
	info, ok := c[id]
	if !ok {
		return ModelInfo{}, &BadRequestError{Reason: fmt.Sprintf("unknown model %q", id)}
	}
	return info, nil
}

// StorageWriter persists a finished analysis record. Write failures are
// logged, not propagated: analysis results are returned regardless.
type StorageWriter interface {
	Write(ctx context.Context, transcriptText string, rec *analysis.AnalysisRecord, model string) (string, error)
}

// Analyzer orchestrates classification, extraction, related-document search,
// normalization, validation and storage for a single transcript.
type Analyzer struct {
	gen     genai.Generator
	writer  StorageWriter
	docs    DocSearcher
	catalog ModelCatalog
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer. writer and docs may be nil, in which case
// storage and related-document search are skipped.
func NewAnalyzer(gen genai.Generator, writer StorageWriter, docs DocSearcher, catalog ModelCatalog, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gen: gen, writer: writer, docs: docs, catalog: catalog, logger: logger}
}

// Analyze runs both passes over the transcript with the given model and
// returns the validated record. The passes run concurrently; a failure in one
// does not cancel the other, and the first failure is reported.
func (a *Analyzer) Analyze(ctx context.Context, transcriptText, modelID string) (*analysis.AnalysisRecord, error) {
	if len(transcriptText) < transcript.MinLength {
		return nil, &BadRequestError{Reason: fmt.Sprintf("transcript shorter than %d characters", transcript.MinLength)}
	}
	model, err := a.catalog.Resolve(modelID)
	if err != nil {
		return nil, err
	}

	var (
		g       errgroup.Group
		clsRaw  json.RawMessage
		extRaw  json.RawMessage
		related RelatedContext
	)
	g.Go(func() error {
		var err error
		clsRaw, err = runPass(ctx, a.gen, model.Name, classificationPass(transcriptText))
		return err
	})
	g.Go(func() error {
		var err error
		extRaw, err = runPass(ctx, a.gen, model.Name, extractionPass(transcriptText))
		return err
	})
	if a.docs != nil {
		g.Go(func() error {
			rc, err := a.docs.Search(ctx, transcriptText)
			if err != nil {
				a.logger.Warn("related-document search failed, continuing without",
					slog.String("error", err.Error()))
				return nil
			}
			related = rc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var cls classificationResult
	if err := json.Unmarshal(clsRaw, &cls); err != nil {
		return nil, &PassError{Pass: passClassification, Err: fmt.Errorf("decoding output: %w", err)}
	}
	var ext extractionResult
	if err := json.Unmarshal(extRaw, &ext); err != nil {
		return nil, &PassError{Pass: passExtraction, Err: fmt.Errorf("decoding output: %w", err)}
	}

	cand := analysis.Candidate{
		CallType:        cls.CallType,
		SuccessCategory: cls.SuccessCategory,
		Intent:          cls.Intent,
		IntentCategory:  cls.IntentCategory,
		Confidence:      cls.Confidence,
		Summary:         ext.Summary,
		KeyPoints:       ext.KeyPoints,
		ActionItems:     ext.ActionItems,
		Products:        mergeProducts(related.Products, ext.ProductsMentioned),
		Keywords:        related.Keywords,
		RelatedDocs:     related.Docs,
	}
	if analysis.NormalizeCallType(cls.CallType) == string(analysis.CallTypeEscalated) {
		cand.EscalationReason = cls.Rationale
	}

	rec, err := analysis.ValidateFinal(analysis.Normalize(cand))
	if err != nil {
		return nil, err
	}

	if a.writer != nil {
		id, err := a.writer.Write(ctx, transcriptText, rec, model.Name)
		if err != nil {
			a.logger.Warn("storing analysis record failed, returning result without record id",
				slog.String("error", err.Error()))
		} else {
			rec.StorageRecordID = id
		}
	}
	return rec, nil
}
