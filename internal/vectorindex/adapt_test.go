package vectorindex

import (
	"reflect"
	"testing"
)

func TestAdaptDimension_Identity(t *testing.T) {
	v := []float32{1, 2, 3}
	got := AdaptDimension(v, 3)
	if !reflect.DeepEqual(got, v) {
		t.Errorf("AdaptDimension(v, len(v)) = %v, want %v", got, v)
	}
}

func TestAdaptDimension_UnknownDimension(t *testing.T) {
	v := []float32{1, 2, 3}
	for _, dim := range []int{0, -1} {
		if got := AdaptDimension(v, dim); !reflect.DeepEqual(got, v) {
			t.Errorf("AdaptDimension(v, %d) = %v, want unchanged", dim, got)
		}
	}
}

func TestAdaptDimension_Truncates(t *testing.T) {
	// A 3072-dim model vector written into a 1024-dim legacy index keeps
	// the first 1024 components.
	v := make([]float32, 3072)
	for i := range v {
		v[i] = float32(i)
	}
	got := AdaptDimension(v, 1024)
	if len(got) != 1024 {
		t.Fatalf("len = %d, want 1024", len(got))
	}
	for i, x := range got {
		if x != float32(i) {
			t.Fatalf("got[%d] = %g, want %g", i, x, float32(i))
		}
	}
}

func TestAdaptDimension_ZeroPads(t *testing.T) {
	v := []float32{1, 2}
	got := AdaptDimension(v, 5)
	want := []float32{1, 2, 0, 0, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AdaptDimension = %v, want %v", got, want)
	}
}

func TestAdaptDimension_DoesNotMutateInput(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	_ = AdaptDimension(v, 2)
	_ = AdaptDimension(v, 8)
	if !reflect.DeepEqual(v, []float32{1, 2, 3, 4}) {
		t.Errorf("input mutated: %v", v)
	}
}

func TestAdaptDimension_LengthMatchesTarget(t *testing.T) {
	v := []float32{1, 2, 3}
	for _, dim := range []int{1, 2, 3, 4, 100} {
		if got := AdaptDimension(v, dim); len(got) != dim {
			t.Errorf("len(AdaptDimension(v, %d)) = %d", dim, len(got))
		}
	}
}
