package service

import "math"

// cosineSparse computes cosine similarity between two sparse vectors keyed by
// arena index. Zero when either vector is empty or has zero norm.
func cosineSparse(a, b map[int]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller map for the dot product.
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var dot float64
	for i, v := range small {
		if w, ok := large[i]; ok {
			dot += v * w
		}
	}
	if dot == 0 {
		return 0
	}
	var na, nb float64
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// normalizeMax divides every score by the map's maximum so scores land on
// [0,1]. A no-op for an empty map or a non-positive maximum.
func normalizeMax(scores map[int]float64) {
	var max float64
	for _, v := range scores {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return
	}
	for i, v := range scores {
		scores[i] = v / max
	}
}
