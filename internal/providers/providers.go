// package providers defines the capability interface for music catalog
// providers and the concrete Spotify and Yandex Music adapters.
//
// The interface is consumed identically for source and target roles; write
// operations are only invoked on the target. A read-only provider returns
// shared.ErrUnsupported from write capabilities rather than silently
// stubbing them.
package providers

import (
	"context"

	"github.com/Jekudy/MuSync/internal/models"
)

// Provider is the catalog capability set consumed by the transfer
// pipeline.
type Provider interface {
	// ListOwnedPlaylists returns all playlists owned by the current user.
	ListOwnedPlaylists(ctx context.Context) ([]models.Playlist, error)

	// ListTracks returns the tracks of a playlist. The ordering must be
	// stable across repeated calls; checkpoint resume depends on it.
	ListTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// ListLikedTracks returns the user's liked tracks in a stable order.
	ListLikedTracks(ctx context.Context) ([]models.Track, error)

	// FindCandidates returns up to topK candidates for the source track,
	// sorted descending by confidence.
	FindCandidates(ctx context.Context, track models.Track, topK int) ([]models.Candidate, error)

	// ResolveOrCreatePlaylist returns an owned playlist by name, creating
	// it if necessary.
	ResolveOrCreatePlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// AddTracksBatch adds up to the provider's maximum batch size of
	// tracks to the playlist. Failures are distinguishable as rate-limit
	// (with a suggested wait), not-found, or transient signals.
	AddTracksBatch(ctx context.Context, playlistID string, uris []string) (models.AddResult, error)

	// AddLikesBatch adds tracks to the user's liked/saved collection.
	AddLikesBatch(ctx context.Context, uris []string) (models.AddResult, error)

	// Name returns the provider name (e.g. "Spotify", "Yandex Music").
	Name() string
}
