// package pipeline implements the playlist transfer orchestrator.
//
// TransferPipeline scans source tracks, matches each against the target
// catalog, and writes matched identifiers in durable, resumable batches.
// Progress is persisted through a checkpoint store after every stage
// transition and periodically during matching, so a second invocation
// with the same job identifier continues rather than restarts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Jekudy/MuSync/internal/idempotency"
	"github.com/Jekudy/MuSync/internal/matching"
	"github.com/Jekudy/MuSync/internal/metrics"
	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/providers"
	"github.com/Jekudy/MuSync/internal/shared"
)

// checkpointInterval is the matching-stage persistence cadence in tracks.
const checkpointInterval = 10

// DefaultTopK is the number of candidates requested per source track.
const DefaultTopK = 3

// likesPlaylistID is the pseudo playlist identifier used to checkpoint
// liked-tracks transfers.
const likesPlaylistID = "likes"

// TrackObserver receives every per-track match outcome. Unlike the
// progress channel, observations are never dropped.
type TrackObserver interface {
	AddTrack(track models.Track, result models.MatchResult)
}

// Options tunes a TransferPipeline.
type Options struct {
	BatchSize  int
	MaxRetries int
	TopK       int
	Logger     *log.Logger
	Collector  *metrics.Collector
	Observer   TrackObserver
}

// TransferPipeline orchestrates one playlist transfer at a time. It is
// single-threaded and owns the checkpoint store exclusively for the
// duration of a (jobID, playlistID) transfer; concurrent transfers for
// the same pair must be serialized by the caller.
type TransferPipeline struct {
	source    providers.Provider
	target    providers.Provider
	matcher   *matching.Matcher
	store     idempotency.Store
	batch     *BatchProcessor
	logger    *log.Logger
	collector *metrics.Collector
	observer  TrackObserver
	topK      int
}

// NewTransferPipeline wires a pipeline from its collaborators.
func NewTransferPipeline(source, target providers.Provider, matcher *matching.Matcher, store idempotency.Store, opts Options) *TransferPipeline {
	if matcher == nil {
		matcher = matching.NewMatcher()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	batch := NewBatchProcessor(target, opts.BatchSize, opts.MaxRetries, opts.Logger)
	if opts.Collector != nil {
		batch.SetCollector(opts.Collector)
	}

	return &TransferPipeline{
		source:    source,
		target:    target,
		matcher:   matcher,
		store:     store,
		batch:     batch,
		logger:    opts.Logger,
		collector: opts.Collector,
		observer:  opts.Observer,
		topK:      opts.TopK,
	}
}

// sendProgress sends a progress update through the channel without
// blocking; a full or absent channel never stalls the transfer.
func (p *TransferPipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// TransferPlaylist transfers one playlist from source to target. When a
// checkpoint exists for (jobID, sourcePlaylist.ID) the transfer resumes
// from it; otherwise it starts fresh. In dry-run mode no checkpoint is
// persisted and no provider write operation is invoked, yet the result
// reports accurate matched/not-found counts with zero added tracks.
func (p *TransferPipeline) TransferPlaylist(ctx context.Context, sourcePlaylist models.Playlist, jobID, snapshotHash string, dryRun bool, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	if p.source == nil || p.target == nil {
		return nil, fmt.Errorf("%w: pipeline providers not initialized", shared.ErrInvalidInput)
	}

	started := time.Now()
	logger := shared.WithLogger(p.logger, "job", jobID, "playlist", sourcePlaylist.ID)
	logger.Info("starting playlist transfer", "name", sourcePlaylist.Name, "dryRun", dryRun)

	if p.collector != nil {
		p.collector.StartJob()
		defer p.collector.EndJob()
	}

	checkpoint, err := p.store.Load(jobID, sourcePlaylist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if checkpoint != nil {
		logger.Info("resuming from checkpoint", "stage", checkpoint.Stage, "cursor", checkpoint.Cursor.TrackIndex, "batch", checkpoint.BatchIndex)
		return p.resumeTransfer(ctx, sourcePlaylist, jobID, checkpoint, started, dryRun, progress)
	}
	return p.startFresh(ctx, sourcePlaylist, jobID, snapshotHash, started, dryRun, progress)
}

func (p *TransferPipeline) startFresh(ctx context.Context, sourcePlaylist models.Playlist, jobID, snapshotHash string, started time.Time, dryRun bool, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	checkpoint := idempotency.NewCheckpoint(jobID, sourcePlaylist.ID, snapshotHash, p.batch.BatchSize())
	if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
		return nil, err
	}

	tracks, err := p.source.ListTracks(ctx, sourcePlaylist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source tracks: %w", err)
	}
	p.sendProgress(progress, scanningUpdate(len(tracks), sourcePlaylist.Name))

	checkpoint.Metadata.TotalTracks = len(tracks)
	checkpoint.Stage = idempotency.StageMatching
	checkpoint.Touch()
	if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
		return nil, err
	}

	targetPlaylist, err := p.resolveTarget(ctx, sourcePlaylist.Name, dryRun)
	if err != nil {
		return nil, err
	}

	matchedURIs := make([]string, 0, len(tracks))
	results := make([]models.MatchResult, 0, len(tracks))

	for i, track := range tracks {
		result := p.matchTrack(ctx, track)
		results = append(results, result)
		if result.Matched() {
			matchedURIs = append(matchedURIs, result.URI)
		}
		if p.collector != nil {
			p.collector.RecordMatch(result)
		}
		p.sendProgress(progress, matchingUpdate(i+1, len(tracks), track, result))

		if (i+1)%checkpointInterval == 0 {
			checkpoint.Cursor.TrackIndex = i + 1
			checkpoint.Metadata.ProcessedTracks = i + 1
			checkpoint.Touch()
			if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
				return nil, err
			}
		}
	}

	return p.processMatched(ctx, targetPlaylist, matchedURIs, results, checkpoint, started, dryRun, 0, len(tracks), progress)
}

func (p *TransferPipeline) resumeTransfer(ctx context.Context, sourcePlaylist models.Playlist, jobID string, checkpoint *idempotency.Checkpoint, started time.Time, dryRun bool, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	// The source is assumed to return a stable ordering, so re-enumerating
	// and skipping up to the recorded cursor lands on the unmatched tail.
	tracks, err := p.source.ListTracks(ctx, sourcePlaylist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source tracks: %w", err)
	}

	targetPlaylist, err := p.resolveTarget(ctx, sourcePlaylist.Name, dryRun)
	if err != nil {
		return nil, err
	}

	startIndex := checkpoint.Cursor.TrackIndex
	if startIndex > len(tracks) {
		startIndex = len(tracks)
	}
	remaining := tracks[startIndex:]
	alreadyAdded := len(checkpoint.AddedUris)
	p.sendProgress(progress, resumingUpdate(startIndex, len(tracks), alreadyAdded))

	matchedURIs := make([]string, 0, len(remaining))
	results := make([]models.MatchResult, 0, len(remaining))

	for i, track := range remaining {
		result := p.matchTrack(ctx, track)
		results = append(results, result)
		// Identifiers recorded in the checkpoint are already written and
		// are never re-submitted.
		if result.Matched() && !checkpoint.ContainsURI(result.URI) {
			matchedURIs = append(matchedURIs, result.URI)
		}
		if p.collector != nil {
			p.collector.RecordMatch(result)
		}
		p.sendProgress(progress, matchingUpdate(startIndex+i+1, len(tracks), track, result))
	}

	return p.processMatched(ctx, targetPlaylist, matchedURIs, results, checkpoint, started, dryRun, alreadyAdded, len(tracks), progress)
}

// matchTrack requests candidates and runs the matcher. A single track's
// failure is absorbed into an error-reason result and never aborts the
// playlist transfer.
func (p *TransferPipeline) matchTrack(ctx context.Context, track models.Track) models.MatchResult {
	var result models.MatchResult
	candidates, err := p.target.FindCandidates(ctx, track, p.topK)
	if err != nil {
		p.logger.Error("candidate search failed", "title", track.Title, "err", err)
		result = models.MatchResult{Confidence: 0, Reason: models.ReasonError}
	} else {
		result = p.matcher.FindBestMatch(track, candidates)
	}
	if p.observer != nil {
		p.observer.AddTrack(track, result)
	}
	return result
}

// resolveTarget resolves or creates the target playlist. In dry-run mode
// the provider is not touched and a synthetic playlist is returned, so a
// preview never performs a provider write.
func (p *TransferPipeline) resolveTarget(ctx context.Context, name string, dryRun bool) (*models.Playlist, error) {
	if dryRun {
		return &models.Playlist{ID: "dry-run", Name: name}, nil
	}
	playlist, err := p.target.ResolveOrCreatePlaylist(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target playlist: %w", err)
	}
	return playlist, nil
}

func (p *TransferPipeline) saveCheckpoint(checkpoint *idempotency.Checkpoint, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := p.store.Save(checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (p *TransferPipeline) processMatched(ctx context.Context, targetPlaylist *models.Playlist, matchedURIs []string, results []models.MatchResult, checkpoint *idempotency.Checkpoint, started time.Time, dryRun bool, alreadyAdded, totalTracks int, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	checkpoint.Stage = idempotency.StageWriting
	checkpoint.Touch()
	if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
		return nil, err
	}

	batches := p.batch.SplitIntoBatches(matchedURIs)

	totalAdded := 0
	totalDuplicates := 0
	totalErrors := 0
	var errorMessages []string

	for batchIndex, batchURIs := range batches {
		checkpoint.BatchIndex = batchIndex
		checkpoint.Touch()
		if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
			return nil, err
		}
		p.sendProgress(progress, writingUpdate(batchIndex, len(batches), len(batchURIs)))

		if p.collector != nil {
			p.collector.StartBatch(batchIndex, len(batchURIs))
		}

		result, err := p.batch.ProcessBatch(ctx, targetPlaylist.ID, batchURIs, checkpoint.JobID, batchIndex, dryRun)
		if err != nil {
			// An unrecoverable batch is reported and counted, and the
			// transfer continues with the next batch.
			message := fmt.Sprintf("failed to process batch %d: %v", batchIndex, err)
			p.logger.Error("batch failed permanently", "batch", batchIndex, "err", err)
			errorMessages = append(errorMessages, message)
			totalErrors += len(batchURIs)
			if p.collector != nil {
				p.collector.EndBatch(models.AddResult{Errors: len(batchURIs)})
			}
			continue
		}

		totalAdded += result.Added
		totalDuplicates += result.Duplicates
		totalErrors += result.Errors
		if p.collector != nil {
			p.collector.EndBatch(result)
		}

		if !dryRun && result.Added > 0 {
			checkpoint.AddedUris = append(checkpoint.AddedUris, batchURIs[:result.Added]...)
			checkpoint.Touch()
			if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
				return nil, err
			}
		}
	}

	matchedTracks := alreadyAdded
	notFoundTracks := 0
	ambiguousTracks := 0
	for _, r := range results {
		if r.Matched() {
			matchedTracks++
		}
		switch r.Reason {
		case models.ReasonNotFound:
			notFoundTracks++
		case models.ReasonAmbiguous:
			ambiguousTracks++
		}
	}

	checkpoint.Stage = idempotency.StageCompleted
	checkpoint.Touch()
	if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
		return nil, err
	}

	addedTracks := 0
	if !dryRun {
		addedTracks = totalAdded + alreadyAdded
	}

	result := &models.TransferResult{
		PlaylistID:      targetPlaylist.ID,
		PlaylistName:    targetPlaylist.Name,
		TotalTracks:     totalTracks,
		MatchedTracks:   matchedTracks,
		NotFoundTracks:  notFoundTracks,
		AmbiguousTracks: ambiguousTracks,
		AddedTracks:     addedTracks,
		DuplicateTracks: totalDuplicates,
		FailedTracks:    totalErrors,
		Errors:          errorMessages,
		DurationMS:      time.Since(started).Milliseconds(),
	}
	p.sendProgress(progress, completedUpdate(result))

	p.logger.Info("transfer finished",
		"matched", result.MatchedTracks, "total", result.TotalTracks,
		"added", result.AddedTracks, "duplicates", result.DuplicateTracks,
		"failed", result.FailedTracks, "dryRun", dryRun)
	return result, nil
}

// TransferLikes transfers the source's liked tracks into the target's
// saved collection, checkpointed under a pseudo playlist identifier.
func (p *TransferPipeline) TransferLikes(ctx context.Context, jobID string, dryRun bool, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	started := time.Now()
	logger := shared.WithLogger(p.logger, "job", jobID)
	logger.Info("starting likes transfer", "dryRun", dryRun)

	checkpoint, err := p.store.Load(jobID, likesPlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	tracks, err := p.source.ListLikedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked tracks: %w", err)
	}

	startIndex := 0
	alreadyAdded := 0
	if checkpoint != nil {
		startIndex = checkpoint.Cursor.TrackIndex
		if startIndex > len(tracks) {
			startIndex = len(tracks)
		}
		alreadyAdded = len(checkpoint.AddedUris)
		logger.Info("resuming likes transfer", "cursor", startIndex, "alreadyAdded", alreadyAdded)
		p.sendProgress(progress, resumingUpdate(startIndex, len(tracks), alreadyAdded))
	} else {
		checkpoint = idempotency.NewCheckpoint(jobID, likesPlaylistID, idempotency.SnapshotHash(tracks), p.batch.BatchSize())
		checkpoint.Metadata.TotalTracks = len(tracks)
		checkpoint.Stage = idempotency.StageMatching
		if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
			return nil, err
		}
		p.sendProgress(progress, scanningUpdate(len(tracks), "liked tracks"))
	}

	remaining := tracks[startIndex:]
	matchedURIs := make([]string, 0, len(remaining))
	results := make([]models.MatchResult, 0, len(remaining))

	for i, track := range remaining {
		result := p.matchTrack(ctx, track)
		results = append(results, result)
		if result.Matched() && !checkpoint.ContainsURI(result.URI) {
			matchedURIs = append(matchedURIs, result.URI)
		}
		if p.collector != nil {
			p.collector.RecordMatch(result)
		}
		p.sendProgress(progress, matchingUpdate(startIndex+i+1, len(tracks), track, result))

		if (startIndex+i+1)%checkpointInterval == 0 {
			checkpoint.Cursor.TrackIndex = startIndex + i + 1
			checkpoint.Metadata.ProcessedTracks = startIndex + i + 1
			checkpoint.Touch()
			if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
				return nil, err
			}
		}
	}

	checkpoint.Stage = idempotency.StageWriting
	checkpoint.Touch()
	if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
		return nil, err
	}

	batches := p.batch.SplitIntoBatches(matchedURIs)
	totalAdded := 0
	totalDuplicates := 0
	totalErrors := 0
	var errorMessages []string

	for batchIndex, batchURIs := range batches {
		checkpoint.BatchIndex = batchIndex
		checkpoint.Touch()
		if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
			return nil, err
		}
		p.sendProgress(progress, writingUpdate(batchIndex, len(batches), len(batchURIs)))

		result, err := p.batch.ProcessLikesBatch(ctx, batchURIs, jobID, batchIndex, dryRun)
		if err != nil {
			message := fmt.Sprintf("failed to process likes batch %d: %v", batchIndex, err)
			logger.Error("likes batch failed permanently", "batch", batchIndex, "err", err)
			errorMessages = append(errorMessages, message)
			totalErrors += len(batchURIs)
			continue
		}

		totalAdded += result.Added
		totalDuplicates += result.Duplicates
		totalErrors += result.Errors

		if !dryRun && result.Added > 0 {
			checkpoint.AddedUris = append(checkpoint.AddedUris, batchURIs[:result.Added]...)
			checkpoint.Touch()
			if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
				return nil, err
			}
		}
	}

	matchedTracks := alreadyAdded
	notFoundTracks := 0
	for _, r := range results {
		if r.Matched() {
			matchedTracks++
		}
		if r.Reason == models.ReasonNotFound {
			notFoundTracks++
		}
	}

	checkpoint.Stage = idempotency.StageCompleted
	checkpoint.Touch()
	if err := p.saveCheckpoint(checkpoint, dryRun); err != nil {
		return nil, err
	}

	addedTracks := 0
	if !dryRun {
		addedTracks = totalAdded + alreadyAdded
	}

	result := &models.TransferResult{
		PlaylistID:      likesPlaylistID,
		PlaylistName:    "Liked tracks",
		TotalTracks:     len(tracks),
		MatchedTracks:   matchedTracks,
		NotFoundTracks:  notFoundTracks,
		AddedTracks:     addedTracks,
		DuplicateTracks: totalDuplicates,
		FailedTracks:    totalErrors,
		Errors:          errorMessages,
		DurationMS:      time.Since(started).Milliseconds(),
	}
	p.sendProgress(progress, completedUpdate(result))
	return result, nil
}
