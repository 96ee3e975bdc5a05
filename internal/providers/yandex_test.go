package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/shared"
)

func newTestYandex(t *testing.T, handler http.Handler) *YandexProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewYandexProvider("yandex-token")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	provider.SetBaseURL(server.URL)
	return provider
}

func yandexAccountHandler(mux *http.ServeMux) {
	mux.HandleFunc("/account/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"account":{"uid":42}}}`)
	})
}

func TestYandexListOwnedPlaylists(t *testing.T) {
	mux := http.NewServeMux()
	yandexAccountHandler(mux)
	mux.HandleFunc("/users/42/playlists/list", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth yandex-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, `{"result":[
			{"kind":1001,"title":"Favorites","owner":{"uid":42},"trackCount":25},
			{"kind":1002,"title":"Road Trip","owner":{"uid":42},"trackCount":8}
		]}`)
	})

	provider := newTestYandex(t, mux)
	playlists, err := provider.ListOwnedPlaylists(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if playlists[0].ID != "1001" {
		t.Errorf("expected playlist kind as ID, got %q", playlists[0].ID)
	}
	if playlists[1].Name != "Road Trip" || playlists[1].TrackCount != 8 {
		t.Errorf("unexpected playlist: %+v", playlists[1])
	}
	if !playlists[0].IsOwned {
		t.Error("yandex playlists are always owned")
	}
}

func TestYandexListTracks(t *testing.T) {
	mux := http.NewServeMux()
	yandexAccountHandler(mux)
	mux.HandleFunc("/users/42/playlists/1001", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"kind":1001,"title":"Favorites","tracks":[
			{"id":100,"track":{"id":100,"title":"Группа крови","artists":[{"name":"Кино"}],"albums":[{"title":"Группа крови"}],"durationMs":284000}},
			{"id":101,"track":null},
			{"id":102,"track":{"id":102,"title":"Sky","artists":[{"name":"Artist"},{"name":""}],"durationMs":180000}}
		]}}`)
	})

	provider := newTestYandex(t, mux)
	tracks, err := provider.ListTracks(context.Background(), "1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks (null entries skipped), got %d", len(tracks))
	}
	if tracks[0].Title != "Группа крови" || tracks[0].Album != "Группа крови" {
		t.Errorf("unexpected first track: %+v", tracks[0])
	}
	if tracks[0].SourceID != "100" {
		t.Errorf("expected numeric id as string, got %q", tracks[0].SourceID)
	}
	if len(tracks[1].Artists) != 1 {
		t.Errorf("empty artist names should be dropped, got %v", tracks[1].Artists)
	}
}

func TestYandexListLikedTracks(t *testing.T) {
	mux := http.NewServeMux()
	yandexAccountHandler(mux)
	mux.HandleFunc("/users/42/likes/tracks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"library":{"tracks":[{"id":7},{"id":8}]}}}`)
	})
	mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("track-ids"); got != "7,8" {
			t.Errorf("unexpected track-ids %q", got)
		}
		fmt.Fprint(w, `{"result":[
			{"id":7,"title":"Seven","artists":[{"name":"A"}],"durationMs":100000},
			{"id":8,"title":"Eight","artists":[{"name":"B"}],"durationMs":200000}
		]}`)
	})

	provider := newTestYandex(t, mux)
	tracks, err := provider.ListLikedTracks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("expected 2 liked tracks, got %d", len(tracks))
	}
	if tracks[0].Title != "Seven" || tracks[1].Title != "Eight" {
		t.Errorf("unexpected tracks: %v", tracks)
	}
}

func TestYandexErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				if _, ok := shared.AsRateLimit(err); !ok {
					t.Errorf("expected rate limit error, got %v", err)
				}
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, shared.ErrPermanentFailure) {
					t.Errorf("expected ErrPermanentFailure, got %v", err)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, shared.ErrTemporaryFailure) {
					t.Errorf("expected ErrTemporaryFailure, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/account/status", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			provider := newTestYandex(t, mux)
			_, err := provider.ListOwnedPlaylists(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			tt.check(t, err)
		})
	}
}

func TestYandexWritesUnsupported(t *testing.T) {
	provider, err := NewYandexProvider("token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if _, err := provider.FindCandidates(ctx, models.Track{Title: "x"}, 3); !errors.Is(err, shared.ErrUnsupported) {
		t.Errorf("FindCandidates: expected ErrUnsupported, got %v", err)
	}
	if _, err := provider.ResolveOrCreatePlaylist(ctx, "x"); !errors.Is(err, shared.ErrUnsupported) {
		t.Errorf("ResolveOrCreatePlaylist: expected ErrUnsupported, got %v", err)
	}
	if _, err := provider.AddTracksBatch(ctx, "p", []string{"u"}); !errors.Is(err, shared.ErrUnsupported) {
		t.Errorf("AddTracksBatch: expected ErrUnsupported, got %v", err)
	}
	if _, err := provider.AddLikesBatch(ctx, []string{"u"}); !errors.Is(err, shared.ErrUnsupported) {
		t.Errorf("AddLikesBatch: expected ErrUnsupported, got %v", err)
	}
}
