// package normalize canonicalizes free-text track metadata into comparable
// forms and derives the stable identity key used for snapshot hashing and
// exact-match detection.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Jekudy/MuSync/internal/models"
)

// DefaultToleranceMS is the duration bucketing window used for identity keys.
const DefaultToleranceMS = 2000

var (
	featPattern         = regexp.MustCompile(`\b(feat\.?|ft\.)\b`)
	parensContent       = regexp.MustCompile(`\s*[(\[{][^)\]}]*[)\]}]\s*`)
	parensChars         = regexp.MustCompile(`[()\[\]{}]`)
	nonWordSpacePattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	multiSpacePattern   = regexp.MustCompile(`\s+`)

	// Tokens that carry no identity signal in artist credits.
	stopTokens = map[string]bool{
		"vol": true, "pt": true, "remaster": true,
		"remastered": true, "live": true, "edit": true,
	}

	diacriticsStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// stripDiacritics decomposes the string and drops combining marks, so
// "Beyoncé" and "Beyonce" normalize identically.
func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsStripper, s)
	if err != nil {
		return s
	}
	return out
}

// String canonicalizes a free-text metadata value: strips diacritics,
// lower-cases, expands "&" to "and", removes feat/ft markers, removes
// parenthetical and bracketed segments (nested included), collapses
// punctuation and underscores to single spaces, and trims.
func String(value string) string {
	value = stripDiacritics(value)
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "&", " and ")
	value = featPattern.ReplaceAllString(value, " ")

	// Innermost-first removal handles nested brackets.
	for {
		next := parensContent.ReplaceAllString(value, " ")
		if next == value {
			break
		}
		value = next
	}
	value = parensChars.ReplaceAllString(value, " ")

	value = nonWordSpacePattern.ReplaceAllString(value, " ")
	value = strings.ReplaceAll(value, "_", " ")
	value = multiSpacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// Artists normalizes a list of artist credits into a single
// order-insensitive string: each name is normalized with a leading "the "
// stripped, then the set is sorted and joined with spaces. ["The Beatles",
// "John Lennon"] and ["john lennon", "beatles"] normalize identically.
func Artists(artists []string) string {
	normalized := make([]string, 0, len(artists))
	for _, artist := range artists {
		if artist == "" {
			continue
		}
		name := strings.TrimPrefix(String(artist), "the ")
		if name != "" {
			normalized = append(normalized, name)
		}
	}
	sort.Strings(normalized)
	return strings.Join(normalized, " ")
}

// ArtistTokens normalizes each artist credit and splits it into significant
// word tokens, discarding numeric-only tokens and common tail tokens such
// as "vol" or "remaster".
func ArtistTokens(artists []string) map[string]bool {
	tokens := make(map[string]bool)
	for _, artist := range artists {
		for _, tok := range strings.Fields(String(artist)) {
			if isDigits(tok) || stopTokens[tok] {
				continue
			}
			tokens[tok] = true
		}
	}
	return tokens
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RoundDuration buckets a duration to the nearest tolerance window using
// nearest-neighbor rounding, so 1999ms and 2001ms both round to 2000 when
// the tolerance is 2000. Negative durations clamp to zero.
func RoundDuration(durationMS, toleranceMS int) int {
	if durationMS < 0 {
		return 0
	}
	bucket := toleranceMS
	if bucket < 1 {
		bucket = 1
	}
	return int(math.Round(float64(durationMS)/float64(bucket))) * bucket
}

// TrackKey derives the two-tier identity key for a track. An ISRC alone
// determines identity when present; otherwise the key is built from the
// normalized title, the order-insensitive artist string, and the bucketed
// duration.
func TrackKey(track models.Track, toleranceMS int) string {
	if track.ISRC != "" {
		return "isrc:" + track.ISRC
	}
	return fmt.Sprintf("meta:%s::%s::%d",
		String(track.Title),
		Artists(track.Artists),
		RoundDuration(track.DurationMS, toleranceMS),
	)
}
