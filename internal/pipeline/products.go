package pipeline

import (
	"strings"
	"unicode"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
)

// extractedProductScore is the fixed confidence assigned to AI-extracted
// products, deliberately distinct from retrieval-derived similarity scores.
const extractedProductScore = 0.9

// slugify derives a product id from its name: lower-cased, non-alphanumeric
// runs collapsed to single hyphens, leading/trailing hyphens stripped.
func slugify(name string) string {
	var sb strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// mergeProducts combines retrieval-derived products with AI-extracted ones.
// Extracted products already present in the retrieval set (matched
// case-insensitively on name) are dropped; the rest get a slug id and the
// fixed extraction score.
func mergeProducts(retrieved []analysis.Product, extracted []extractedProduct) []analysis.Product {
	out := make([]analysis.Product, 0, len(retrieved)+len(extracted))
	seen := make(map[string]bool, len(retrieved))
	for _, p := range retrieved {
		out = append(out, p)
		seen[strings.ToLower(p.Name)] = true
	}

	for _, p := range extracted {
		name := strings.TrimSpace(p.Name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, analysis.Product{
			ID:       slugify(name),
			Name:     name,
			Score:    extractedProductScore,
			Brand:    strings.TrimSpace(p.Brand),
			Category: strings.TrimSpace(p.Category),
		})
	}
	return out
}
