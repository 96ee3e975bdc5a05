// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/Jekudy/MuSync/internal/idempotency"
	"github.com/Jekudy/MuSync/internal/models"
)

// MockProvider is a configurable test double for [providers.Provider].
//
// Zero value behaves as an empty provider; fields configure canned
// responses and injected errors. Call counts are recorded for
// assertions about write invocations.
type MockProvider struct {
	mu sync.Mutex

	ProviderName string

	Playlists    []models.Playlist
	PlaylistsErr error

	Tracks    map[string][]models.Track
	TracksErr error

	Liked    []models.Track
	LikedErr error

	// Candidates maps a track SourceID to its canned search results.
	Candidates    map[string][]models.Candidate
	CandidatesErr error

	ResolvedPlaylist *models.Playlist
	ResolveErr       error

	AddResults []models.AddResult
	AddErrs    []error

	FindCalls    int
	ResolveCalls int
	AddCalls     int
	AddedURIs    [][]string
	LikeCalls    int
	LikedURIs    [][]string
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) ListOwnedPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return m.Playlists, nil
}

func (m *MockProvider) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if m.TracksErr != nil {
		return nil, m.TracksErr
	}
	return m.Tracks[playlistID], nil
}

func (m *MockProvider) ListLikedTracks(ctx context.Context) ([]models.Track, error) {
	if m.LikedErr != nil {
		return nil, m.LikedErr
	}
	return m.Liked, nil
}

func (m *MockProvider) FindCandidates(ctx context.Context, track models.Track, topK int) ([]models.Candidate, error) {
	m.mu.Lock()
	m.FindCalls++
	m.mu.Unlock()
	if m.CandidatesErr != nil {
		return nil, m.CandidatesErr
	}
	candidates := m.Candidates[track.SourceID]
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (m *MockProvider) ResolveOrCreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	m.mu.Lock()
	m.ResolveCalls++
	m.mu.Unlock()
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	if m.ResolvedPlaylist != nil {
		return m.ResolvedPlaylist, nil
	}
	return &models.Playlist{ID: "target-" + name, Name: name}, nil
}

// nextAdd pops the next configured result/error pair; past the end of
// the configured slices every identifier is accepted.
func (m *MockProvider) nextAdd(call int, uris []string) (models.AddResult, error) {
	if call < len(m.AddErrs) && m.AddErrs[call] != nil {
		return models.AddResult{}, m.AddErrs[call]
	}
	if call < len(m.AddResults) {
		return m.AddResults[call], nil
	}
	return models.AddResult{Added: len(uris)}, nil
}

func (m *MockProvider) AddTracksBatch(ctx context.Context, playlistID string, uris []string) (models.AddResult, error) {
	m.mu.Lock()
	call := m.AddCalls
	m.AddCalls++
	m.AddedURIs = append(m.AddedURIs, append([]string(nil), uris...))
	m.mu.Unlock()
	return m.nextAdd(call, uris)
}

func (m *MockProvider) AddLikesBatch(ctx context.Context, uris []string) (models.AddResult, error) {
	m.mu.Lock()
	call := m.LikeCalls
	m.LikeCalls++
	m.LikedURIs = append(m.LikedURIs, append([]string(nil), uris...))
	m.mu.Unlock()
	return m.nextAdd(call, uris)
}

// AllAddedURIs flattens every submitted playlist batch into one slice.
func (m *MockProvider) AllAddedURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, batch := range m.AddedURIs {
		all = append(all, batch...)
	}
	return all
}

// FailingStore is a checkpoint store double whose operations all fail.
type FailingStore struct{}

func (FailingStore) Save(*idempotency.Checkpoint) error { return errors.New("store failed") }

func (FailingStore) Load(jobID, playlistID string) (*idempotency.Checkpoint, error) {
	return nil, errors.New("store failed")
}

func (FailingStore) Delete(jobID, playlistID string) error { return errors.New("store failed") }

func (FailingStore) ListForJob(jobID string) ([]*idempotency.Checkpoint, error) {
	return nil, errors.New("store failed")
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// NewTrack builds a minimal track for tests.
func NewTrack(id, title string, artists []string, durationMS int) models.Track {
	return models.Track{
		ID:         id,
		SourceID:   id,
		Title:      title,
		Artists:    artists,
		DurationMS: durationMS,
		URI:        fmt.Sprintf("uri:%s", id),
	}
}

// NewCandidate builds a candidate with a URI and confidence.
func NewCandidate(uri string, confidence float64, reason string) models.Candidate {
	return models.Candidate{URI: uri, Confidence: confidence, Reason: reason}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
