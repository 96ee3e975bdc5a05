package models

// Track represents a music track independent of any provider.
//
// Constructed by provider adapters when listing a catalog and read-only
// afterwards. Artists is never nil; an empty slice means the provider
// reported no artist credits.
type Track struct {
	ID         string   // Provider catalog ID, may be empty
	SourceID   string   // Identifier within the source catalog
	Title      string   // Track title as reported by the provider
	Artists    []string // Ordered artist credits, never nil
	DurationMS int      // Duration in milliseconds
	ISRC       string   // International Standard Recording Code, empty if unknown
	Album      string   // Album title, empty if unknown
	URI        string   // Resolved provider URI, empty until matched
}

// NewTrack returns a Track with the artists slice defaulted so callers
// never observe a nil Artists field.
func NewTrack(sourceID, title string, artists []string, durationMS int) Track {
	if artists == nil {
		artists = []string{}
	}
	return Track{
		SourceID:   sourceID,
		Title:      title,
		Artists:    artists,
		DurationMS: durationMS,
	}
}

// Playlist represents a playlist from any provider.
type Playlist struct {
	ID         string
	Name       string
	OwnerID    string
	IsOwned    bool
	TrackCount int
}

// Candidate is a possible correspondence in the target catalog returned
// by a provider search. Confidence is always within [0, 1]. The optional
// descriptive fields support tie-breaking and diagnostics only.
type Candidate struct {
	URI        string
	Confidence float64
	Reason     string

	Title      string
	Artists    []string
	Album      string
	DurationMS int
	Rank       int  // Position within the provider's result page
	HasRank    bool // False when the provider did not report a rank
	AlbumType  string
}

// Match reason codes. URI is populated on a MatchResult only for the
// positive reasons (isrc_exact, exact_match, fuzzy_match).
const (
	ReasonISRCExact  = "isrc_exact"
	ReasonExactMatch = "exact_match"
	ReasonFuzzyMatch = "fuzzy_match"
	ReasonNotFound   = "not_found"
	ReasonAmbiguous  = "ambiguous"
	ReasonError      = "error"
)

// MatchResult is the outcome of matching one source track against target
// candidates. URI is empty when no match was accepted.
type MatchResult struct {
	URI        string
	Confidence float64
	Reason     string
}

// Matched reports whether the result carries an accepted target URI.
func (m MatchResult) Matched() bool {
	return m.URI != ""
}

// AddResult is the outcome of one batch write to a target playlist.
// For a normal completion Added+Duplicates+Errors equals the submitted
// batch size.
type AddResult struct {
	Added      int
	Duplicates int
	Errors     int
}

// TransferResult summarizes a completed playlist transfer.
type TransferResult struct {
	PlaylistID      string
	PlaylistName    string
	TotalTracks     int
	MatchedTracks   int
	NotFoundTracks  int
	AmbiguousTracks int
	AddedTracks     int
	DuplicateTracks int
	FailedTracks    int
	Errors          []string
	DurationMS      int64
}
