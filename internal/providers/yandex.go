// Yandex Music implementation of [Provider].
//
// Yandex Music is consumed as a read-only source: listing playlists,
// playlist tracks, and liked tracks. Write capabilities fail fast with
// shared.ErrUnsupported.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/shared"
)

const yandexBaseURL = "https://api.music.yandex.net"

type yandexArtist struct {
	Name string `json:"name"`
}

type yandexAlbum struct {
	Title string `json:"title"`
}

// YandexTrack represents a Yandex Music track object.
type YandexTrack struct {
	ID         json.Number    `json:"id"`
	Title      string         `json:"title"`
	Artists    []yandexArtist `json:"artists"`
	Albums     []yandexAlbum  `json:"albums"`
	DurationMS int            `json:"durationMs"`
}

type yandexTrackItem struct {
	ID    json.Number  `json:"id"`
	Track *YandexTrack `json:"track"`
}

type yandexOwner struct {
	UID json.Number `json:"uid"`
}

// YandexPlaylist represents a Yandex Music playlist (identified by kind).
type YandexPlaylist struct {
	Kind       json.Number       `json:"kind"`
	Title      string            `json:"title"`
	Owner      yandexOwner       `json:"owner"`
	TrackCount int               `json:"trackCount"`
	Tracks     []yandexTrackItem `json:"tracks"`
}

type yandexAccountStatus struct {
	Account struct {
		UID json.Number `json:"uid"`
	} `json:"account"`
}

type yandexLikesLibrary struct {
	Library struct {
		Tracks []struct {
			ID json.Number `json:"id"`
		} `json:"tracks"`
	} `json:"library"`
}

// YandexProvider implements the read-only source role of [Provider] for
// the Yandex Music API.
type YandexProvider struct {
	oauthToken string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userID     string
}

// NewYandexProvider creates a Yandex Music provider with the given OAuth
// token.
func NewYandexProvider(oauthToken string) (*YandexProvider, error) {
	if oauthToken == "" {
		return nil, fmt.Errorf("%w: yandex oauth_token is required", shared.ErrMissingCredentials)
	}
	return &YandexProvider{
		oauthToken: oauthToken,
		baseURL:    yandexBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
	}, nil
}

func (y *YandexProvider) Name() string {
	return "Yandex Music"
}

// SetBaseURL overrides the API endpoint, used by tests.
func (y *YandexProvider) SetBaseURL(baseURL string) {
	y.baseURL = strings.TrimSuffix(baseURL, "/")
}

// doRequest performs an authenticated, rate-limited request and unwraps
// the Yandex envelope ({"result": ...}) into result.
func (y *YandexProvider) doRequest(ctx context.Context, method, endpoint string, result any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+y.oauthToken)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTemporaryFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Second
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return shared.NewRateLimitError(retryAfter)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: yandex returned 404", shared.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: yandex returned %d", shared.ErrPermanentFailure, resp.StatusCode)
	default:
		return fmt.Errorf("%w: yandex returned %d", shared.ErrTemporaryFailure, resp.StatusCode)
	}

	if result != nil {
		envelope := struct {
			Result json.RawMessage `json:"result"`
		}{}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

// currentUserID fetches and caches the account UID used in playlist paths.
func (y *YandexProvider) currentUserID(ctx context.Context) (string, error) {
	if y.userID != "" {
		return y.userID, nil
	}
	var status yandexAccountStatus
	if err := y.doRequest(ctx, http.MethodGet, "/account/status", &status); err != nil {
		return "", err
	}
	y.userID = status.Account.UID.String()
	return y.userID, nil
}

// ListOwnedPlaylists returns the user's playlists. Yandex only lists the
// caller's own playlists on this endpoint, so every entry is owned.
func (y *YandexProvider) ListOwnedPlaylists(ctx context.Context) ([]models.Playlist, error) {
	userID, err := y.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/users/%s/playlists/list", url.PathEscape(userID))
	var yandexPlaylists []YandexPlaylist
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &yandexPlaylists); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(yandexPlaylists))
	for _, yp := range yandexPlaylists {
		playlists = append(playlists, models.Playlist{
			ID:         yp.Kind.String(),
			Name:       yp.Title,
			OwnerID:    yp.Owner.UID.String(),
			IsOwned:    true,
			TrackCount: yp.TrackCount,
		})
	}
	return playlists, nil
}

// ListTracks returns the playlist's tracks in playlist order. The API
// returns a stable ordering, which resume correctness depends on.
func (y *YandexProvider) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	userID, err := y.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/users/%s/playlists/%s", url.PathEscape(userID), url.PathEscape(playlistID))
	var playlist YandexPlaylist
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &playlist); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(playlist.Tracks))
	for _, item := range playlist.Tracks {
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, y.toTrack(*item.Track))
	}
	return tracks, nil
}

// ListLikedTracks returns the user's liked tracks. The likes endpoint only
// returns identifiers; full metadata is resolved in chunks of 100.
func (y *YandexProvider) ListLikedTracks(ctx context.Context) ([]models.Track, error) {
	userID, err := y.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/users/%s/likes/tracks", url.PathEscape(userID))
	var likes yandexLikesLibrary
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &likes); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(likes.Library.Tracks))
	for _, entry := range likes.Library.Tracks {
		ids = append(ids, entry.ID.String())
	}

	var tracks []models.Track
	for start := 0; start < len(ids); start += 100 {
		end := start + 100
		if end > len(ids) {
			end = len(ids)
		}

		endpoint := "/tracks?track-ids=" + url.QueryEscape(strings.Join(ids[start:end], ","))
		var chunk []YandexTrack
		if err := y.doRequest(ctx, http.MethodGet, endpoint, &chunk); err != nil {
			return nil, err
		}
		for _, yt := range chunk {
			tracks = append(tracks, y.toTrack(yt))
		}
	}
	return tracks, nil
}

func (y *YandexProvider) toTrack(yt YandexTrack) models.Track {
	artists := make([]string, 0, len(yt.Artists))
	for _, artist := range yt.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}

	track := models.NewTrack(yt.ID.String(), yt.Title, artists, yt.DurationMS)
	if len(yt.Albums) > 0 {
		track.Album = yt.Albums[0].Title
	}
	return track
}

// FindCandidates is unsupported for the read-only source role.
func (y *YandexProvider) FindCandidates(ctx context.Context, track models.Track, topK int) ([]models.Candidate, error) {
	return nil, fmt.Errorf("%w: FindCandidates on %s", shared.ErrUnsupported, y.Name())
}

// ResolveOrCreatePlaylist is unsupported for the read-only source role.
func (y *YandexProvider) ResolveOrCreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	return nil, fmt.Errorf("%w: ResolveOrCreatePlaylist on %s", shared.ErrUnsupported, y.Name())
}

// AddTracksBatch is unsupported for the read-only source role.
func (y *YandexProvider) AddTracksBatch(ctx context.Context, playlistID string, uris []string) (models.AddResult, error) {
	return models.AddResult{}, fmt.Errorf("%w: AddTracksBatch on %s", shared.ErrUnsupported, y.Name())
}

// AddLikesBatch is unsupported for the read-only source role.
func (y *YandexProvider) AddLikesBatch(ctx context.Context, uris []string) (models.AddResult, error) {
	return models.AddResult{}, fmt.Errorf("%w: AddLikesBatch on %s", shared.ErrUnsupported, y.Name())
}
