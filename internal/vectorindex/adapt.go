package vectorindex

// AdaptDimension reconciles a vector's length against a target index
// dimension. Longer vectors are truncated to the first dim components —
// truncation, not re-projection, so similarity comparisons are only valid
// index-wide, never across differently-truncated sources. Shorter vectors
// are zero-padded at the tail. An unknown (non-positive) dim returns the
// vector unchanged. The input is never mutated.
func AdaptDimension(vec []float32, dim int) []float32 {
	if dim <= 0 || len(vec) == dim {
		return vec
	}
	out := make([]float32, dim)
	copy(out, vec)
	return out
}
