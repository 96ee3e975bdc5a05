// package metrics collects in-process transfer metrics for reporting.
//
// The collector is owned by a single transfer job; the pipeline is
// single-threaded, so no locking is required.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Jekudy/MuSync/internal/models"
)

// BatchMetrics captures the outcome of one batch write.
type BatchMetrics struct {
	BatchIndex      int   `json:"batchIndex"`
	TrackCount      int   `json:"trackCount"`
	Added           int   `json:"added"`
	Duplicates      int   `json:"duplicates"`
	Errors          int   `json:"errors"`
	Retries         int   `json:"retries"`
	RateLimitWaitMS int64 `json:"rateLimitWaitMs"`
	DurationMS      int64 `json:"durationMs"`
}

// SuccessRate returns the fraction of the batch that was added.
func (b BatchMetrics) SuccessRate() float64 {
	if b.TrackCount == 0 {
		return 0
	}
	return float64(b.Added) / float64(b.TrackCount)
}

// JobMetrics aggregates metrics across a whole transfer job.
type JobMetrics struct {
	JobID           string         `json:"jobId"`
	SnapshotHash    string         `json:"snapshotHash"`
	StartedAt       time.Time      `json:"startedAt"`
	FinishedAt      time.Time      `json:"finishedAt"`
	TracksMatched   int            `json:"tracksMatched"`
	TracksNotFound  int            `json:"tracksNotFound"`
	TracksFailed    int            `json:"tracksFailed"`
	TotalRetries    int            `json:"totalRetries"`
	RateLimitWaitMS int64          `json:"rateLimitWaitMs"`
	Batches         []BatchMetrics `json:"batches"`
}

// MatchRate returns the fraction of processed tracks that matched.
func (j JobMetrics) MatchRate() float64 {
	total := j.TracksMatched + j.TracksNotFound + j.TracksFailed
	if total == 0 {
		return 0
	}
	return float64(j.TracksMatched) / float64(total)
}

// DurationMS returns the wall-clock job duration.
func (j JobMetrics) DurationMS() int64 {
	if j.FinishedAt.IsZero() || j.StartedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt).Milliseconds()
}

// Collector accumulates job and batch metrics as the pipeline runs.
type Collector struct {
	job          JobMetrics
	currentBatch *BatchMetrics
	batchStarted time.Time
}

// NewCollector creates a collector for the given job.
func NewCollector(jobID, snapshotHash string) *Collector {
	return &Collector{
		job: JobMetrics{
			JobID:        jobID,
			SnapshotHash: snapshotHash,
			Batches:      []BatchMetrics{},
		},
	}
}

// StartJob marks the job start time.
func (c *Collector) StartJob() {
	c.job.StartedAt = time.Now().UTC()
}

// EndJob marks the job finish time.
func (c *Collector) EndJob() {
	c.job.FinishedAt = time.Now().UTC()
}

// RecordMatch records one track's match outcome.
func (c *Collector) RecordMatch(result models.MatchResult) {
	switch {
	case result.Matched():
		c.job.TracksMatched++
	case result.Reason == models.ReasonError:
		c.job.TracksFailed++
	default:
		c.job.TracksNotFound++
	}
}

// StartBatch opens a batch metrics window.
func (c *Collector) StartBatch(batchIndex, trackCount int) {
	c.currentBatch = &BatchMetrics{BatchIndex: batchIndex, TrackCount: trackCount}
	c.batchStarted = time.Now()
}

// EndBatch closes the current batch window with its result.
func (c *Collector) EndBatch(result models.AddResult) {
	if c.currentBatch == nil {
		return
	}
	c.currentBatch.Added = result.Added
	c.currentBatch.Duplicates = result.Duplicates
	c.currentBatch.Errors = result.Errors
	c.currentBatch.DurationMS = time.Since(c.batchStarted).Milliseconds()
	c.job.Batches = append(c.job.Batches, *c.currentBatch)
	c.currentBatch = nil
}

// RecordRetry counts a batch retry attempt.
func (c *Collector) RecordRetry() {
	c.job.TotalRetries++
	if c.currentBatch != nil {
		c.currentBatch.Retries++
	}
}

// RecordRateLimitWait accumulates time spent honoring rate-limit waits.
func (c *Collector) RecordRateLimitWait(wait time.Duration) {
	c.job.RateLimitWaitMS += wait.Milliseconds()
	if c.currentBatch != nil {
		c.currentBatch.RateLimitWaitMS += wait.Milliseconds()
	}
}

// Job returns a snapshot of the accumulated job metrics.
func (c *Collector) Job() JobMetrics {
	return c.job
}

// SaveToFile writes the job metrics as indented JSON.
func (c *Collector) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c.job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
