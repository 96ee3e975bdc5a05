package matching

import (
	"fmt"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/shared"
)

// Statistics aggregates a set of already-computed match results.
type Statistics struct {
	Total     int
	Matched   int
	NotFound  int
	Ambiguous int
	MatchRate float64
	ByReason  map[string]int
}

// MatchRate returns the fraction of results carrying an accepted URI.
func MatchRate(results []models.MatchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	matched := 0
	for _, r := range results {
		if r.Matched() {
			matched++
		}
	}
	return float64(matched) / float64(len(results))
}

// FalseMatchRate returns the fraction of matched results whose URI differs
// from the expected URI. An empty expected entry means no expectation and
// is excluded from the denominator. The slices must have equal length.
func FalseMatchRate(results []models.MatchResult, expectedURIs []string) (float64, error) {
	if len(results) != len(expectedURIs) {
		return 0, fmt.Errorf("%w: %d results but %d expected URIs",
			shared.ErrInvalidArgument, len(results), len(expectedURIs))
	}

	falseMatches := 0
	totalMatches := 0
	for i, r := range results {
		if !r.Matched() || expectedURIs[i] == "" {
			continue
		}
		totalMatches++
		if r.URI != expectedURIs[i] {
			falseMatches++
		}
	}
	if totalMatches == 0 {
		return 0, nil
	}
	return float64(falseMatches) / float64(totalMatches), nil
}

// Stats computes summary counts and the reason-code histogram for a set
// of match results.
func Stats(results []models.MatchResult) Statistics {
	stats := Statistics{
		Total:    len(results),
		ByReason: make(map[string]int),
	}
	for _, r := range results {
		if r.Matched() {
			stats.Matched++
		}
		switch r.Reason {
		case models.ReasonNotFound:
			stats.NotFound++
		case models.ReasonAmbiguous:
			stats.Ambiguous++
		}
		stats.ByReason[r.Reason]++
	}
	if stats.Total > 0 {
		stats.MatchRate = float64(stats.Matched) / float64(stats.Total)
	}
	return stats
}
