// Spotify API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistBatchLimit = 100
	likesBatchLimit    = 50
	searchPageLimit    = 20
)

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AlbumType string `json:"album_type"`
	URI       string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist object.
type SpotifyPlaylist struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Owner  spotifyOwner      `json:"owner"`
	Public bool              `json:"public"`
	Tracks playlistTracksRef `json:"tracks"`
	URI    string            `json:"uri"`
}

type spotifyPlaylistTrack struct {
	Track SpotifyTrack `json:"track"`
}

type paginatedPlaylists struct {
	Items []SpotifyPlaylist `json:"items"`
	Next  *string           `json:"next"`
}

type paginatedPlaylistTracks struct {
	Items []spotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

type paginatedSavedTracks struct {
	Items []spotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyProvider implements [Provider] for the Spotify Web API.
// Uses [oauth2] for authentication and a client-side [rate.Limiter] to
// stay under the API request budget.
type SpotifyProvider struct {
	config     *oauth2.Config
	token      *oauth2.Token
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	similarity *metrics.JaroWinkler
	userID     string
	market     string
}

// NewSpotifyProvider creates a Spotify provider with the given OAuth2
// credentials.
func NewSpotifyProvider(clientID, clientSecret, redirectURI string) (*SpotifyProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
			"user-library-read",
			"user-library-modify",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyProvider{
		config:     config,
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
		similarity: metrics.NewJaroWinkler(),
		market:     "US",
	}, nil
}

func (s *SpotifyProvider) Name() string {
	return "Spotify"
}

// OAuthConfig exposes the provider's OAuth2 configuration for the
// authorization-code flow.
func (s *SpotifyProvider) OAuthConfig() *oauth2.Config {
	return s.config
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyProvider) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authenticate installs a token on the provider. Tokens with a refresh
// token are refreshed transparently by the oauth2 client.
func (s *SpotifyProvider) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrNotAuthenticated)
	}
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
	return nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (s *SpotifyProvider) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimSuffix(baseURL, "/")
}

// SetMarket overrides the market used for candidate search.
func (s *SpotifyProvider) SetMarket(market string) {
	if market != "" {
		s.market = market
	}
}

// doRequest performs an authenticated, rate-limited request against the
// Spotify API and maps failure statuses into the shared error taxonomy.
func (s *SpotifyProvider) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTemporaryFailure, err)
	}
	defer resp.Body.Close()

	if err := s.mapStatus(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// mapStatus converts non-2xx responses into the shared error taxonomy,
// extracting the Retry-After hint on 429.
func (s *SpotifyProvider) mapStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Second
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return shared.NewRateLimitError(retryAfter)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: spotify returned 404", shared.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: spotify returned %d", shared.ErrPermanentFailure, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: spotify returned %d", shared.ErrTemporaryFailure, resp.StatusCode)
	default:
		return fmt.Errorf("%w: spotify returned %d", shared.ErrPermanentFailure, resp.StatusCode)
	}
}

// currentUserID fetches and caches the authenticated user's ID.
func (s *SpotifyProvider) currentUserID(ctx context.Context) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return "", err
	}
	s.userID = user.ID
	return s.userID, nil
}

// ListOwnedPlaylists retrieves playlists owned by the authenticated user.
func (s *SpotifyProvider) ListOwnedPlaylists(ctx context.Context) ([]models.Playlist, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var playlists []models.Playlist
	offset := 0
	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=50&offset=%d", offset)
		var page paginatedPlaylists
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			playlists = append(playlists, models.Playlist{
				ID:         sp.ID,
				Name:       sp.Name,
				OwnerID:    sp.Owner.ID,
				IsOwned:    sp.Owner.ID == userID,
				TrackCount: sp.Tracks.Total,
			})
		}

		if page.Next == nil {
			break
		}
		offset += 50
	}
	return playlists, nil
}

// ListTracks retrieves all tracks of a playlist in playlist order.
func (s *SpotifyProvider) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0
	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=100&offset=%d", url.PathEscape(playlistID), offset)
		var page paginatedPlaylistTracks
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			tracks = append(tracks, s.toTrack(item.Track))
		}

		if page.Next == nil {
			break
		}
		offset += 100
	}
	return tracks, nil
}

// ListLikedTracks retrieves the user's saved tracks in library order.
func (s *SpotifyProvider) ListLikedTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0
	for {
		endpoint := fmt.Sprintf("/me/tracks?limit=50&offset=%d", offset)
		var page paginatedSavedTracks
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			tracks = append(tracks, s.toTrack(item.Track))
		}

		if page.Next == nil {
			break
		}
		offset += 50
	}
	return tracks, nil
}

func (s *SpotifyProvider) toTrack(st SpotifyTrack) models.Track {
	artists := make([]string, 0, len(st.Artists))
	for _, artist := range st.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}

	track := models.NewTrack(st.ID, st.Name, artists, st.DurationMS)
	track.ID = st.ID
	track.ISRC = st.ExternalIDs.ISRC
	track.Album = st.Album.Name
	track.URI = st.URI
	return track
}

// FindCandidates searches Spotify for correspondences to the source
// track. The search is multi-pass: an ISRC lookup settles the question
// outright; otherwise a strict field query runs before a free-text query
// and results are scored on metadata similarity.
func (s *SpotifyProvider) FindCandidates(ctx context.Context, track models.Track, topK int) ([]models.Candidate, error) {
	if topK <= 0 {
		topK = 3
	}

	type pass struct {
		kind  string
		query string
	}

	var passes []pass
	if track.ISRC != "" {
		passes = append(passes, pass{kind: "isrc", query: "isrc:" + track.ISRC})
	}
	if track.Title != "" && len(track.Artists) > 0 {
		primary := track.Artists[0]
		passes = append(passes,
			pass{kind: "strict", query: fmt.Sprintf("track:%q artist:%q", track.Title, primary)},
			pass{kind: "free_text", query: track.Title + " " + primary},
		)
	}

	seen := make(map[string]bool)
	var candidates []models.Candidate

	for _, p := range passes {
		endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d&market=%s",
			url.QueryEscape(p.query), searchPageLimit, url.QueryEscape(s.market))

		var result searchResponse
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
			if shared.IsPermanent(err) {
				return nil, err
			}
			if _, ok := shared.AsRateLimit(err); ok {
				return nil, err
			}
			// Transient search failures fall through to the next pass.
			continue
		}

		for idx, item := range result.Tracks.Items {
			candidate := s.toCandidate(item, p.kind, track, idx)
			if candidate.URI == "" || seen[candidate.URI] {
				continue
			}
			seen[candidate.URI] = true
			candidates = append(candidates, candidate)

			if p.kind == "isrc" {
				// An ISRC hit is authoritative; no further passes needed.
				return candidates[:1], nil
			}
			if len(candidates) >= topK {
				break
			}
		}
		if len(candidates) >= topK {
			break
		}
	}

	// Sort descending by confidence, preserving search order for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *SpotifyProvider) toCandidate(st SpotifyTrack, searchKind string, source models.Track, rank int) models.Candidate {
	artists := make([]string, 0, len(st.Artists))
	for _, artist := range st.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}

	confidence := s.scoreCandidate(source, st.Name, artists, st.DurationMS, searchKind)

	reason := models.ReasonFuzzyMatch
	switch {
	case searchKind == "isrc":
		reason = models.ReasonISRCExact
	case confidence >= 0.95:
		reason = models.ReasonExactMatch
	}

	uri := st.URI
	if uri == "" && st.ID != "" {
		uri = "spotify:track:" + st.ID
	}

	return models.Candidate{
		URI:        uri,
		Confidence: confidence,
		Reason:     reason,
		Title:      st.Name,
		Artists:    artists,
		Album:      st.Album.Name,
		DurationMS: st.DurationMS,
		Rank:       rank,
		HasRank:    true,
		AlbumType:  st.Album.AlbumType,
	}
}

// scoreCandidate computes a [0,1] confidence from weighted title, artist
// and duration similarity. ISRC hits are always 1.0.
func (s *SpotifyProvider) scoreCandidate(source models.Track, title string, artists []string, durationMS int, searchKind string) float64 {
	if searchKind == "isrc" {
		return 1.0
	}

	titleSim := strutil.Similarity(strings.ToLower(source.Title), strings.ToLower(title), s.similarity)

	artistSim := 0.0
	if len(source.Artists) > 0 && len(artists) > 0 {
		artistSim = strutil.Similarity(strings.ToLower(source.Artists[0]), strings.ToLower(artists[0]), s.similarity)
	}

	durationSim := 1.0
	if diff := abs(source.DurationMS - durationMS); diff > 2000 {
		durationSim = 1.0 - float64(diff-2000)/3000.0
		if durationSim < 0 {
			durationSim = 0
		}
	}

	confidence := titleSim*0.5 + artistSim*0.4 + durationSim*0.1
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ResolveOrCreatePlaylist returns an owned playlist matching the name
// case-insensitively, creating a private playlist when none exists.
func (s *SpotifyProvider) ResolveOrCreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlists, err := s.ListOwnedPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	for _, playlist := range playlists {
		if playlist.IsOwned && strings.EqualFold(playlist.Name, name) {
			found := playlist
			return &found, nil
		}
	}

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"name": name, "public": false}
	var created SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:      created.ID,
		Name:    created.Name,
		OwnerID: created.Owner.ID,
		IsOwned: true,
	}, nil
}

// AddTracksBatch adds track URIs to the playlist, 100 per request. A run
// sliced larger than the API limit is chunked so every URI is either added
// or counted as an error.
func (s *SpotifyProvider) AddTracksBatch(ctx context.Context, playlistID string, uris []string) (models.AddResult, error) {
	if len(uris) == 0 {
		return models.AddResult{}, nil
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	var result models.AddResult
	for start := 0; start < len(uris); start += playlistBatchLimit {
		end := start + playlistBatchLimit
		if end > len(uris) {
			end = len(uris)
		}
		batch := uris[start:end]

		body := map[string]any{"uris": batch}
		var response struct {
			SnapshotID string `json:"snapshot_id"`
		}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
			return result, err
		}
		if response.SnapshotID == "" {
			result.Errors += len(batch)
			continue
		}
		result.Added += len(batch)
	}
	return result, nil
}

// AddLikesBatch saves tracks to the user's library, 50 IDs per request.
func (s *SpotifyProvider) AddLikesBatch(ctx context.Context, uris []string) (models.AddResult, error) {
	ids := make([]string, 0, len(uris))
	for _, uri := range uris {
		if id := strings.TrimPrefix(uri, "spotify:track:"); id != uri {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return models.AddResult{}, nil
	}

	var result models.AddResult
	for start := 0; start < len(ids); start += likesBatchLimit {
		end := start + likesBatchLimit
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		endpoint := "/me/tracks?ids=" + url.QueryEscape(strings.Join(batch, ","))
		if err := s.doRequest(ctx, http.MethodPut, endpoint, nil, nil); err != nil {
			if _, ok := shared.AsRateLimit(err); ok {
				return result, err
			}
			if shared.IsPermanent(err) {
				return result, err
			}
			result.Errors += len(batch)
			continue
		}
		result.Added += len(batch)
	}
	return result, nil
}
