package drive

import (
	"context"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"

	"drive-go/internal/model"
)

// SearchResult is one ranked match.
type SearchResult struct {
	File       *model.File
	Score      float64
	NameMatch  float64
	Similarity float64
}

// Search ranks the owner's files against query, most relevant first. Only
// files owned by owner are ever candidates. If the query cannot be embedded
// the ranking falls back to the name signal alone.
func (s *DriveService) Search(ctx context.Context, owner, query string) ([]SearchResult, error) {
	start := s.clock.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newError(KindInvalidQuery, "search query must not be empty", nil)
	}

	queryVec, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Warn("search embedding degraded", "owner", owner, "error", err)
		queryVec = nil
	}

	candidates, err := s.database.ListFilesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	results := Rank(query, queryVec, candidates, s.opts.Ranking)
	s.metrics.SearchServed(len(results), s.clock.Now().Sub(start))
	s.logger.Debug("search served", "owner", owner, "candidates", len(candidates), "results", len(results))
	return results, nil
}

// Rank scores candidates as
//
//	NameWeight*nameMatch + SimilarityWeight*cosine
//
// and sorts descending by score, then by newest CreatedAt, then by id.
// Files without an embedding, or a nil queryVec, get similarity 0, and
// negative cosines are clamped to 0, so an embedded file never ranks below a
// file without one. Results scoring below MinScore are dropped and Limit caps
// the list.
func Rank(query string, queryVec []float32, candidates []*model.File, r Ranking) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))

	results := make([]SearchResult, 0, len(candidates))
	for _, f := range candidates {
		nm := nameMatch(q, f.Name)
		sim := 0.0
		if queryVec != nil && f.HasEmbedding() {
			sim = max(0, cosine(queryVec, f.Embedding))
		}
		score := r.NameWeight*nm + r.SimilarityWeight*sim
		if score < r.MinScore {
			continue
		}
		results = append(results, SearchResult{File: f, Score: score, NameMatch: nm, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.File.CreatedAt.Equal(b.File.CreatedAt) {
			return a.File.CreatedAt.After(b.File.CreatedAt)
		}
		return a.File.ID < b.File.ID
	})

	if r.Limit > 0 && len(results) > r.Limit {
		results = results[:r.Limit]
	}
	return results
}

// nameMatch returns 1 when the lowercased query equals the file name or its
// stem, 0.5 when it is a substring of the name, else 0.
func nameMatch(q, name string) float64 {
	n := strings.ToLower(name)
	stem := strings.TrimSuffix(n, path.Ext(n))
	switch {
	case q == n || q == stem:
		return 1.0
	case strings.Contains(n, q):
		return 0.5
	}
	return 0
}

// cosine returns the cosine similarity of a and b, or 0 if their lengths
// differ or either is a zero vector.
func cosine(a, b []float32) float64 {
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
