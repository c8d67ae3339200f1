package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
	"github.com/jchaffin/call-analytics-pinecone/internal/clustering"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a call transcript file",
	Long: `Analyze a call transcript through the running server.

The file may be plain text or a PDF (detected by extension).

Examples:
  callanalytics analyze ./call-2031.txt
  callanalytics analyze ./call-2031.pdf --model gpt-4o`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		model, _ := cmd.Flags().GetString("model")

		text, err := readTranscriptFile(path)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"transcript": text}
		if model != "" {
			req["model"] = model
		}
		resp, err := client.post(cmd.Context(), "/v1/analyze", req)
		if err != nil {
			return err
		}

		var rec analysis.AnalysisRecord
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}

		printSuccess("Analyzed %s: %s / %s", filepath.Base(path), rec.CallType, rec.SuccessCategory)
		printStatus("Intent", "%s (%s)", rec.Intent, rec.IntentCategory)
		if rec.StorageRecordID != "" {
			printStatus("Record", "%s", rec.StorageRecordID)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// readTranscriptFile reads a transcript from disk, extracting plain text from
// PDFs by extension.
func readTranscriptFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Index a reference document for related-document search",
	Long: `Index a knowledge-base article or product sheet through the running
server. The document will surface on analyses of similar calls.

Examples:
  callanalytics ingest ./returns-policy.txt --title "Router returns policy"
  callanalytics ingest ./router.pdf --product "Acme Router" --brand Acme`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		title, _ := cmd.Flags().GetString("title")
		product, _ := cmd.Flags().GetString("product")
		productID, _ := cmd.Flags().GetString("product-id")
		brand, _ := cmd.Flags().GetString("brand")
		category, _ := cmd.Flags().GetString("category")

		content, err := readTranscriptFile(path)
		if err != nil {
			return err
		}
		if title == "" {
			title = filepath.Base(path)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"title":   title,
			"content": content,
		}
		if product != "" {
			req["productName"] = product
		}
		if productID != "" {
			req["productId"] = productID
		}
		if brand != "" {
			req["brand"] = brand
		}
		if category != "" {
			req["category"] = category
		}

		resp, err := client.post(cmd.Context(), "/v1/docs", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed doc %s", result["id"])
		return nil
	},
}

// --- cluster ---

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster stored call intents",
	Long: `Group stored call intents into clusters of semantically equivalent
phrasings, via the running server.

Examples:
  callanalytics cluster
  callanalytics cluster --threshold 0.9 --limit 500`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/v1/intent-clusters"
		params := []string{}
		if threshold > 0 {
			params = append(params, fmt.Sprintf("threshold=%g", threshold))
		}
		if limit > 0 {
			params = append(params, fmt.Sprintf("limit=%d", limit))
		}
		if len(params) > 0 {
			path += "?" + strings.Join(params, "&")
		}

		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var report clustering.Report
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		printSuccess("%d intents in %d clusters (avg %.2f per cluster)",
			report.TotalIntents, report.TotalClusters, report.AvgIntentsPerCluster)
		for _, c := range report.Clusters {
			printStatus(c.Primary, "%d calls, %d variations", c.TotalCount, c.Variations)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("model", "", "model id to analyze with")
	ingestCmd.Flags().String("title", "", "document title (default: file name)")
	ingestCmd.Flags().String("product", "", "product name the document covers")
	ingestCmd.Flags().String("product-id", "", "product id the document covers")
	ingestCmd.Flags().String("brand", "", "product brand")
	ingestCmd.Flags().String("category", "", "product category")
	clusterCmd.Flags().Float64("threshold", 0, "cosine similarity merge threshold in (0, 1)")
	clusterCmd.Flags().Int("limit", 0, "maximum number of stored calls to scan")
}
