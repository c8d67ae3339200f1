package pipeline

import (
	"testing"

	"github.com/jchaffin/call-analytics-pinecone/internal/analysis"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Router", "acme-router"},
		{"  Acme   Router  ", "acme-router"},
		{"Wi-Fi 6E Mesh (3-pack)", "wi-fi-6e-mesh-3-pack"},
		{"ROUTER", "router"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMergeProductsPrefersRetrieval(t *testing.T) {
	retrieved := []analysis.Product{
		{ID: "sku-42", Name: "Acme Router", Score: 0.91, Brand: "Acme"},
	}
	extracted := []extractedProduct{
		{Name: "acme router"},        // duplicate of the retrieved one, different case
		{Name: "Acme Extender Pro"},  // new
		{Name: ""},                   // dropped
		{Name: "Acme Extender Pro "}, // duplicate of the extracted one
	}

	merged := mergeProducts(retrieved, extracted)
	if len(merged) != 2 {
		t.Fatalf("merged = %+v, want 2 products", merged)
	}
	if merged[0].ID != "sku-42" || merged[0].Score != 0.91 {
		t.Errorf("retrieved product was overwritten: %+v", merged[0])
	}
	if merged[1].Name != "Acme Extender Pro" {
		t.Errorf("merged[1] = %+v", merged[1])
	}
	if merged[1].ID != "acme-extender-pro" {
		t.Errorf("extracted product id = %q, want slug", merged[1].ID)
	}
	if merged[1].Score != extractedProductScore {
		t.Errorf("extracted product score = %v, want %v", merged[1].Score, extractedProductScore)
	}
}

func TestMergeProductsEmptyInputs(t *testing.T) {
	if got := mergeProducts(nil, nil); len(got) != 0 {
		t.Errorf("mergeProducts(nil, nil) = %+v", got)
	}
	extracted := []extractedProduct{{Name: "Acme Router", Brand: "Acme", Category: "Networking"}}
	got := mergeProducts(nil, extracted)
	if len(got) != 1 || got[0].Brand != "Acme" || got[0].Category != "Networking" {
		t.Errorf("mergeProducts(nil, extracted) = %+v", got)
	}
}
