// package matching selects the best target-catalog correspondence for a
// source track from a small set of search candidates.
//
// Selection is metadata-first: an ordered sequence of pool-narrowing
// filters (title equality, artist-token overlap, album tie-break, rank
// order) with a pure confidence fallback when no metadata rule applies.
// A configurable risk mode applies a minimum-confidence floor after
// selection as a false-positive control.
package matching

import (
	"fmt"
	"sort"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/normalize"
	"github.com/Jekudy/MuSync/internal/shared"
)

// Risk modes. Any other value imposes no confidence floor.
const (
	RiskModeStrict   = "strict"
	RiskModeBalanced = "balanced"

	balancedFloor = 0.80
)

// Matcher holds the thresholds for match acceptance.
//
// AmbiguousThreshold is retained for configuration compatibility; the
// selection algorithm always returns its top-ranked candidate and never
// halts on a near-tie, so the ambiguous reason code is currently
// unreachable.
type Matcher struct {
	ExactThreshold     float64
	FuzzyThreshold     float64
	AmbiguousThreshold float64
	RiskMode           string
}

// NewMatcher returns a Matcher with the default thresholds in strict
// risk mode.
func NewMatcher() *Matcher {
	return &Matcher{
		ExactThreshold:     0.95,
		FuzzyThreshold:     0.85,
		AmbiguousThreshold: 0.05,
		RiskMode:           RiskModeStrict,
	}
}

// FindBestMatch selects the single best candidate for the source track,
// or declines with a not_found result.
func (m *Matcher) FindBestMatch(source models.Track, candidates []models.Candidate) models.MatchResult {
	if len(candidates) == 0 {
		return models.MatchResult{Confidence: 0, Reason: models.ReasonNotFound}
	}

	selected, ok := m.selectByMetadata(source, candidates)
	if !ok {
		// Pure confidence fallback over the original list. No ambiguity
		// short-circuit: a decision is always returned.
		selected = candidates[0]
		for _, c := range candidates[1:] {
			if c.Confidence > selected.Confidence {
				selected = c
			}
		}
	}

	if selected.Confidence < m.confidenceFloor() {
		return models.MatchResult{Confidence: 0, Reason: models.ReasonNotFound}
	}

	return models.MatchResult{
		URI:        selected.URI,
		Confidence: selected.Confidence,
		Reason:     selected.Reason,
	}
}

// selectByMetadata runs the pool-narrowing filter sequence. It applies
// only when the source carries both a title and artist credits.
func (m *Matcher) selectByMetadata(source models.Track, candidates []models.Candidate) (models.Candidate, bool) {
	if source.Title == "" || len(source.Artists) == 0 {
		return models.Candidate{}, false
	}

	sourceTitle := normalize.String(source.Title)
	sourceTokens := normalize.ArtistTokens(source.Artists)

	overlapOK := func(candidateArtists []string) bool {
		candTokens := normalize.ArtistTokens(candidateArtists)
		if len(sourceTokens) == 0 {
			return len(candTokens) > 0
		}
		for tok := range candTokens {
			if sourceTokens[tok] {
				return true
			}
		}
		return false
	}

	// Pool 1: title equality plus artist overlap.
	var pool []models.Candidate
	for _, c := range candidates {
		if normalize.String(c.Title) == sourceTitle && overlapOK(c.Artists) {
			pool = append(pool, c)
		}
	}

	// Pool 2: artist overlap only.
	if len(pool) == 0 {
		for _, c := range candidates {
			if overlapOK(c.Artists) {
				pool = append(pool, c)
			}
		}
	}
	if len(pool) == 0 {
		return models.Candidate{}, false
	}

	// Album is a tie-break filter, never a hard requirement.
	if source.Album != "" {
		sourceAlbum := normalize.String(source.Album)
		var albumMatched []models.Candidate
		for _, c := range pool {
			if normalize.String(c.Album) == sourceAlbum {
				albumMatched = append(albumMatched, c)
			}
		}
		if len(albumMatched) > 0 {
			pool = albumMatched
		}
	}

	// Rank ascending, candidates without a rank last, equal ranks broken
	// by descending confidence.
	sort.SliceStable(pool, func(i, j int) bool {
		ri, rj := rankKey(pool[i]), rankKey(pool[j])
		if ri != rj {
			return ri < rj
		}
		return pool[i].Confidence > pool[j].Confidence
	})

	return pool[0], true
}

func rankKey(c models.Candidate) int {
	if !c.HasRank {
		return int(^uint(0) >> 1)
	}
	return c.Rank
}

func (m *Matcher) confidenceFloor() float64 {
	switch m.RiskMode {
	case RiskModeStrict:
		return m.FuzzyThreshold
	case RiskModeBalanced:
		return balancedFloor
	default:
		return 0
	}
}

// MatchBatch matches each source track against its candidate list. The
// two slices must have the same length; a mismatch is a contract
// violation and produces no partial results.
func (m *Matcher) MatchBatch(sources []models.Track, candidateLists [][]models.Candidate) ([]models.MatchResult, error) {
	if len(sources) != len(candidateLists) {
		return nil, fmt.Errorf("%w: %d source tracks but %d candidate lists",
			shared.ErrInvalidArgument, len(sources), len(candidateLists))
	}

	results := make([]models.MatchResult, len(sources))
	for i, source := range sources {
		results[i] = m.FindBestMatch(source, candidateLists[i])
	}
	return results, nil
}
