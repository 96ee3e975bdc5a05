package idempotency

import (
	"time"
)

// Transfer stages. A checkpoint moves forward through these and never
// back; once completed it is terminal and may be deleted.
const (
	StageScanning  = "scanning"
	StageMatching  = "matching"
	StageWriting   = "writing"
	StageCompleted = "completed"
)

// Cursor records how far the scan/match phase has progressed.
type Cursor struct {
	TrackIndex      int `json:"trackIndex"`
	BatchTrackIndex int `json:"batchTrackIndex"`
}

// Metadata carries bookkeeping counts alongside the checkpoint.
type Metadata struct {
	TotalTracks     int `json:"totalTracks"`
	ProcessedTracks int `json:"processedTracks"`
	BatchSize       int `json:"batchSize"`
}

// Checkpoint is the durable progress record for one (jobID, playlistID)
// transfer. AddedUris only grows and the cursor only advances; that
// monotonicity is what makes resume-after-crash safe.
type Checkpoint struct {
	JobID        string    `json:"jobId"`
	SnapshotHash string    `json:"snapshotHash"`
	PlaylistID   string    `json:"playlistId"`
	BatchIndex   int       `json:"batchIndex"`
	Stage        string    `json:"stage"`
	Cursor       Cursor    `json:"cursor"`
	AddedUris    []string  `json:"addedUris"`
	Attempts     int       `json:"attempts"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Metadata     Metadata  `json:"metadata"`
}

// NewCheckpoint creates the initial scanning-stage checkpoint for a
// transfer.
func NewCheckpoint(jobID, playlistID, snapshotHash string, batchSize int) *Checkpoint {
	return &Checkpoint{
		JobID:        jobID,
		SnapshotHash: snapshotHash,
		PlaylistID:   playlistID,
		Stage:        StageScanning,
		AddedUris:    []string{},
		UpdatedAt:    time.Now().UTC(),
		Metadata:     Metadata{BatchSize: batchSize},
	}
}

// Touch refreshes the checkpoint timestamp.
func (c *Checkpoint) Touch() {
	c.UpdatedAt = time.Now().UTC()
}

// ContainsURI reports whether the URI was already confirmed written.
func (c *Checkpoint) ContainsURI(uri string) bool {
	for _, added := range c.AddedUris {
		if added == uri {
			return true
		}
	}
	return false
}

// Store is the checkpoint persistence contract consumed by the transfer
// pipeline. Load returns (nil, nil) when no record exists. Implementations
// must guarantee at-least-the-latest-write durability and that a load
// after a save round-trips the exact record.
type Store interface {
	Save(checkpoint *Checkpoint) error
	Load(jobID, playlistID string) (*Checkpoint, error)
	Delete(jobID, playlistID string) error
	ListForJob(jobID string) ([]*Checkpoint, error)
}
