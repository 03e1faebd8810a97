package domain

import (
	"math"
	"sort"
)

// ScoredRow is a stored row returned by a nearest-neighbour lookup.
type ScoredRow struct {
	Row IndexRow

	// Score is 1 - cosine distance to the query vector.
	Score float64
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// ID is the row's primary key.
	ID string

	// Filename is the document the chunk came from.
	Filename string

	// Location is the chunk's byte range in the extracted text.
	Location Location

	// Text is the chunk text.
	Text string

	// Score is the similarity, higher is closer.
	Score float64
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero vectors and vectors of different length score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RankScored sorts rows by decreasing score, breaking ties by row ID,
// and keeps at most k.
func RankScored(rows []ScoredRow, k int) []ScoredRow {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Row.ID < rows[j].Row.ID
	})
	if k >= 0 && len(rows) > k {
		rows = rows[:k]
	}
	return rows
}
