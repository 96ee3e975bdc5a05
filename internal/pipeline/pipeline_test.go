package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	mocks "github.com/Jekudy/MuSync/internal/testing"

	"github.com/Jekudy/MuSync/internal/idempotency"
	"github.com/Jekudy/MuSync/internal/matching"
	"github.com/Jekudy/MuSync/internal/models"
)

func testTracks() []models.Track {
	return []models.Track{
		{ID: "t1", SourceID: "t1", Title: "First Song", Artists: []string{"Artist One"}, DurationMS: 180000},
		{ID: "t2", SourceID: "t2", Title: "Second Song", Artists: []string{"Artist Two"}, DurationMS: 200000},
		{ID: "t3", SourceID: "t3", Title: "Missing Song", Artists: []string{"Artist Three"}, DurationMS: 210000},
	}
}

// testProviders builds a source holding testTracks and a target that
// matches the first two and finds nothing for the third.
func testProviders() (*mocks.MockProvider, *mocks.MockProvider) {
	tracks := testTracks()
	source := &mocks.MockProvider{
		ProviderName: "source",
		Playlists:    []models.Playlist{{ID: "pl-1", Name: "Road Trip", IsOwned: true, TrackCount: len(tracks)}},
		Tracks:       map[string][]models.Track{"pl-1": tracks},
	}
	target := &mocks.MockProvider{
		ProviderName: "target",
		Candidates: map[string][]models.Candidate{
			"t1": {{URI: "spotify:track:1", Confidence: 1.0, Reason: models.ReasonISRCExact, Title: "First Song", Artists: []string{"Artist One"}, HasRank: true}},
			"t2": {{URI: "spotify:track:2", Confidence: 0.91, Reason: models.ReasonFuzzyMatch, Title: "Second Song", Artists: []string{"Artist Two"}, HasRank: true}},
		},
	}
	return source, target
}

func newTestPipeline(t *testing.T, source, target *mocks.MockProvider, batchSize int) (*TransferPipeline, idempotency.Store) {
	t.Helper()
	store, err := idempotency.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	pipe := NewTransferPipeline(source, target, matching.NewMatcher(), store, Options{
		BatchSize:  batchSize,
		MaxRetries: 1,
	})
	pipe.batch.sleep = func(d time.Duration) {}
	return pipe, store
}

func TestTransferPlaylistFresh(t *testing.T) {
	source, target := testProviders()
	pipe, store := newTestPipeline(t, source, target, 100)

	playlist := source.Playlists[0]
	result, err := pipe.TransferPlaylist(context.Background(), playlist, "job-1", "hash-1", false, nil)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if result.TotalTracks != 3 {
		t.Errorf("expected 3 total tracks, got %d", result.TotalTracks)
	}
	if result.MatchedTracks != 2 {
		t.Errorf("expected 2 matched, got %d", result.MatchedTracks)
	}
	if result.NotFoundTracks != 1 {
		t.Errorf("expected 1 not found, got %d", result.NotFoundTracks)
	}
	if result.AddedTracks != 2 {
		t.Errorf("expected 2 added, got %d", result.AddedTracks)
	}

	submitted := target.AllAddedURIs()
	if len(submitted) != 2 || submitted[0] != "spotify:track:1" || submitted[1] != "spotify:track:2" {
		t.Errorf("unexpected submitted uris: %v", submitted)
	}

	cp, err := store.Load("job-1", "pl-1")
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if cp == nil {
		t.Fatal("expected a checkpoint after transfer")
	}
	if cp.Stage != idempotency.StageCompleted {
		t.Errorf("expected completed stage, got %q", cp.Stage)
	}
	if len(cp.AddedUris) != 2 {
		t.Errorf("expected 2 recorded uris, got %v", cp.AddedUris)
	}
}

func TestTransferPlaylistDryRun(t *testing.T) {
	source, target := testProviders()
	pipe, store := newTestPipeline(t, source, target, 100)

	playlist := source.Playlists[0]
	result, err := pipe.TransferPlaylist(context.Background(), playlist, "job-dry", "hash-1", true, nil)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if result.AddedTracks != 0 {
		t.Errorf("dry run must report zero added, got %d", result.AddedTracks)
	}
	if result.MatchedTracks != 2 {
		t.Errorf("dry run should still report matches, got %d", result.MatchedTracks)
	}
	if target.AddCalls != 0 {
		t.Errorf("dry run must not write batches, got %d calls", target.AddCalls)
	}
	if target.ResolveCalls != 0 {
		t.Errorf("dry run must not resolve or create playlists, got %d calls", target.ResolveCalls)
	}

	cp, err := store.Load("job-dry", "pl-1")
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if cp != nil {
		t.Error("dry run must not persist checkpoints")
	}
}

func TestTransferPlaylistResume(t *testing.T) {
	source, target := testProviders()
	pipe, store := newTestPipeline(t, source, target, 100)

	// A prior run matched and wrote the first track, then stopped.
	cp := idempotency.NewCheckpoint("job-r", "pl-1", "hash-1", 100)
	cp.Stage = idempotency.StageMatching
	cp.Cursor.TrackIndex = 1
	cp.AddedUris = []string{"spotify:track:1"}
	cp.Metadata.TotalTracks = 3
	if err := store.Save(cp); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	playlist := source.Playlists[0]
	result, err := pipe.TransferPlaylist(context.Background(), playlist, "job-r", "hash-1", false, nil)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	submitted := target.AllAddedURIs()
	for _, uri := range submitted {
		if uri == "spotify:track:1" {
			t.Error("resume must not re-submit already written uris")
		}
	}
	if len(submitted) != 1 || submitted[0] != "spotify:track:2" {
		t.Errorf("expected only the unwritten uri, got %v", submitted)
	}

	if result.MatchedTracks != 2 {
		t.Errorf("expected 2 matched including resumed, got %d", result.MatchedTracks)
	}
	if result.AddedTracks != 2 {
		t.Errorf("expected 2 added including resumed, got %d", result.AddedTracks)
	}

	final, err := store.Load("job-r", "pl-1")
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if final.Stage != idempotency.StageCompleted {
		t.Errorf("expected completed stage, got %q", final.Stage)
	}
}

func TestTransferPlaylistSearchFailureAbsorbed(t *testing.T) {
	source, target := testProviders()
	target.CandidatesErr = errors.New("search exploded")
	pipe, _ := newTestPipeline(t, source, target, 100)

	playlist := source.Playlists[0]
	result, err := pipe.TransferPlaylist(context.Background(), playlist, "job-e", "hash-1", false, nil)
	if err != nil {
		t.Fatalf("per-track search failures must not abort the transfer: %v", err)
	}

	if result.MatchedTracks != 0 {
		t.Errorf("expected no matches, got %d", result.MatchedTracks)
	}
	if result.AddedTracks != 0 {
		t.Errorf("expected nothing added, got %d", result.AddedTracks)
	}
}

func TestTransferPlaylistBatchFailureContained(t *testing.T) {
	boom := errors.New("boom")
	source, target := testProviders()
	// Batch size 1 gives two batches; the first fails terminally on every
	// attempt, the second succeeds.
	target.AddErrs = []error{boom, boom, boom}
	pipe, _ := newTestPipeline(t, source, target, 1)

	playlist := source.Playlists[0]
	result, err := pipe.TransferPlaylist(context.Background(), playlist, "job-b", "hash-1", false, nil)
	if err != nil {
		t.Fatalf("batch failure must not abort the transfer: %v", err)
	}

	if result.FailedTracks != 1 {
		t.Errorf("expected 1 failed track, got %d", result.FailedTracks)
	}
	if result.AddedTracks != 1 {
		t.Errorf("expected 1 added track, got %d", result.AddedTracks)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected one error message, got %v", result.Errors)
	}
}

func TestTransferLikes(t *testing.T) {
	tracks := testTracks()
	source := &mocks.MockProvider{ProviderName: "source", Liked: tracks}
	_, target := testProviders()
	pipe, store := newTestPipeline(t, source, target, 100)

	result, err := pipe.TransferLikes(context.Background(), "job-l", false, nil)
	if err != nil {
		t.Fatalf("likes transfer failed: %v", err)
	}

	if result.MatchedTracks != 2 {
		t.Errorf("expected 2 matched, got %d", result.MatchedTracks)
	}
	if target.LikeCalls != 1 {
		t.Errorf("expected one likes batch, got %d", target.LikeCalls)
	}
	if target.AddCalls != 0 {
		t.Errorf("likes transfer must not write playlist batches, got %d", target.AddCalls)
	}

	cp, err := store.Load("job-l", "likes")
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if cp == nil || cp.Stage != idempotency.StageCompleted {
		t.Errorf("expected completed likes checkpoint, got %+v", cp)
	}
}

func TestProgressUpdatesNonBlocking(t *testing.T) {
	source, target := testProviders()
	pipe, _ := newTestPipeline(t, source, target, 100)

	// An unbuffered channel nobody reads must not stall the transfer.
	progress := make(chan ProgressUpdate)

	playlist := source.Playlists[0]
	if _, err := pipe.TransferPlaylist(context.Background(), playlist, "job-p", "hash-1", false, progress); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
}
