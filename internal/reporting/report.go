// package reporting builds transfer reports and exports them to JSON,
// CSV, Markdown, and plain text.
package reporting

import (
	"strings"
	"time"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/shared"
)

// Track statuses reported per source track.
const (
	StatusMatched  = "matched"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// TrackResult records the outcome for a single source track.
type TrackResult struct {
	SourceID   string  `json:"sourceId"`
	Title      string  `json:"title"`
	Artists    string  `json:"artists"`
	Album      string  `json:"album,omitempty"`
	DurationMS int     `json:"durationMs"`
	Status     string  `json:"status"`
	TargetURI  string  `json:"targetUri,omitempty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// PlaylistSummary aggregates the outcome of one playlist transfer.
type PlaylistSummary struct {
	PlaylistID      string   `json:"playlistId"`
	PlaylistName    string   `json:"playlistName"`
	TotalTracks     int      `json:"totalTracks"`
	MatchedTracks   int      `json:"matchedTracks"`
	NotFoundTracks  int      `json:"notFoundTracks"`
	AddedTracks     int      `json:"addedTracks"`
	DuplicateTracks int      `json:"duplicateTracks"`
	FailedTracks    int      `json:"failedTracks"`
	Errors          []string `json:"errors,omitempty"`
	DurationMS      int64    `json:"durationMs"`
}

// Header identifies the job a report belongs to.
type Header struct {
	JobID        string    `json:"jobId"`
	SnapshotHash string    `json:"snapshotHash"`
	DryRun       bool      `json:"dryRun"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// Report is the full record of a transfer job.
type Report struct {
	Header    Header            `json:"header"`
	Playlists []PlaylistSummary `json:"playlists"`
	Tracks    []TrackResult     `json:"tracks"`
}

// NewReport starts an empty report for a job.
func NewReport(jobID, snapshotHash string, dryRun bool) *Report {
	return &Report{
		Header: Header{
			JobID:        jobID,
			SnapshotHash: snapshotHash,
			DryRun:       dryRun,
			GeneratedAt:  time.Now().UTC(),
		},
	}
}

// AddPlaylist records the summary of one transferred playlist.
func (r *Report) AddPlaylist(result *models.TransferResult) {
	r.Playlists = append(r.Playlists, PlaylistSummary{
		PlaylistID:      result.PlaylistID,
		PlaylistName:    result.PlaylistName,
		TotalTracks:     result.TotalTracks,
		MatchedTracks:   result.MatchedTracks,
		NotFoundTracks:  result.NotFoundTracks,
		AddedTracks:     result.AddedTracks,
		DuplicateTracks: result.DuplicateTracks,
		FailedTracks:    result.FailedTracks,
		Errors:          result.Errors,
		DurationMS:      result.DurationMS,
	})
}

// AddTrack records the match outcome for one source track.
func (r *Report) AddTrack(track models.Track, result models.MatchResult) {
	r.Tracks = append(r.Tracks, TrackResult{
		SourceID:   track.SourceID,
		Title:      track.Title,
		Artists:    strings.Join(track.Artists, ", "),
		Album:      track.Album,
		DurationMS: track.DurationMS,
		Status:     statusFor(result),
		TargetURI:  result.URI,
		Confidence: result.Confidence,
		Reason:     result.Reason,
	})
}

func statusFor(result models.MatchResult) string {
	switch {
	case result.Matched():
		return StatusMatched
	case result.Reason == models.ReasonError:
		return StatusFailed
	case result.Reason == models.ReasonAmbiguous:
		return StatusSkipped
	default:
		return StatusNotFound
	}
}

// Totals sums the playlist summaries.
func (r *Report) Totals() PlaylistSummary {
	var total PlaylistSummary
	total.PlaylistName = "Total"
	for _, p := range r.Playlists {
		total.TotalTracks += p.TotalTracks
		total.MatchedTracks += p.MatchedTracks
		total.NotFoundTracks += p.NotFoundTracks
		total.AddedTracks += p.AddedTracks
		total.DuplicateTracks += p.DuplicateTracks
		total.FailedTracks += p.FailedTracks
		total.DurationMS += p.DurationMS
	}
	return total
}

// ToJSON serializes the report, indented for human consumption.
func (r *Report) ToJSON() ([]byte, error) {
	return shared.MarshalJSON(r, true)
}
