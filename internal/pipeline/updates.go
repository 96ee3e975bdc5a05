package pipeline

import (
	"fmt"

	"github.com/Jekudy/MuSync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running
// transfer.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Transfer phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Transfer phase enumeration
type Phase int

const (
	Scanning Phase = iota
	Matching
	Writing
	Resuming
	Completed
)

func (p Phase) String() string {
	switch p {
	case Scanning:
		return "scanning"
	case Matching:
		return "matching"
	case Writing:
		return "writing"
	case Resuming:
		return "resuming"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func scanningUpdate(total int, playlistName string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Scanning,
		Total:   total,
		Message: fmt.Sprintf("Scanned %d tracks from %s", total, playlistName),
	}
}

func matchingUpdate(step, total int, track models.Track, result models.MatchResult) ProgressUpdate {
	status := "✗"
	if result.Matched() {
		status = "✓"
	}
	artist := ""
	if len(track.Artists) > 0 {
		artist = track.Artists[0]
	}
	return ProgressUpdate{
		Phase:   Matching,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, status, artist, track.Title),
		Data:    result,
	}
}

func resumingUpdate(cursor, total, alreadyAdded int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Resuming,
		Step:    cursor,
		Total:   total,
		Message: fmt.Sprintf("Resuming from track %d/%d (%d already written)", cursor, total, alreadyAdded),
	}
}

func writingUpdate(batchIndex, totalBatches, batchSize int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Writing,
		Step:    batchIndex + 1,
		Total:   totalBatches,
		Message: fmt.Sprintf("Writing batch %d/%d (%d tracks)", batchIndex+1, totalBatches, batchSize),
	}
}

func completedUpdate(result *models.TransferResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Message: fmt.Sprintf("Transfer complete: %d/%d matched, %d added", result.MatchedTracks, result.TotalTracks, result.AddedTracks),
		Data:    result,
	}
}
