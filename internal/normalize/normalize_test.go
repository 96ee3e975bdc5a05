package normalize

import (
	"testing"

	"github.com/Jekudy/MuSync/internal/models"
)

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "HELLO World", "hello world"},
		{"strips diacritics", "Beyoncé", "beyonce"},
		{"expands ampersand", "Simon & Garfunkel", "simon and garfunkel"},
		{"removes feat marker", "Song feat. Artist", "song artist"},
		{"removes feat without dot", "Song feat Artist", "song artist"},
		{"removes parenthetical", "Track (Remastered 2011)", "track"},
		{"removes bracketed", "Track [Live]", "track"},
		{"removes nested parens", "Track (feat. Someone (Remix))", "track"},
		{"strips leftover brackets", "Track (unclosed", "track unclosed"},
		{"collapses punctuation", "don't-stop, believing!", "don t stop believing"},
		{"underscores to spaces", "track_one_two", "track one two"},
		{"collapses whitespace", "  a   b  ", "a b"},
		{"keeps cyrillic", "Кино - Группа Крови", "кино группа крови"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.input); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestArtists(t *testing.T) {
	t.Run("order insensitive", func(t *testing.T) {
		a := Artists([]string{"The Beatles", "John Lennon"})
		b := Artists([]string{"john lennon", "beatles"})
		if a != b {
			t.Errorf("expected identical normalization, got %q and %q", a, b)
		}
	})

	t.Run("strips the prefix", func(t *testing.T) {
		if got := Artists([]string{"The Rolling Stones"}); got != "rolling stones" {
			t.Errorf("expected 'rolling stones', got %q", got)
		}
	})

	t.Run("skips empty credits", func(t *testing.T) {
		if got := Artists([]string{"", "Queen"}); got != "queen" {
			t.Errorf("expected 'queen', got %q", got)
		}
	})
}

func TestArtistTokens(t *testing.T) {
	tokens := ArtistTokens([]string{"Artist Vol. 2", "Other Live"})

	for _, dropped := range []string{"vol", "2", "live"} {
		if tokens[dropped] {
			t.Errorf("token %q should be dropped", dropped)
		}
	}
	for _, kept := range []string{"artist", "other"} {
		if !tokens[kept] {
			t.Errorf("token %q should be kept", kept)
		}
	}
}

func TestRoundDuration(t *testing.T) {
	tests := []struct {
		name       string
		durationMS int
		tolerance  int
		want       int
	}{
		{"exact bucket", 2000, 2000, 2000},
		{"just below rounds up", 1999, 2000, 2000},
		{"just above rounds down", 2001, 2000, 2000},
		{"halfway rounds up", 1000, 2000, 2000},
		{"rounds to zero", 900, 2000, 0},
		{"negative clamps", -5, 2000, 0},
		{"zero tolerance treated as one", 1234, 0, 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundDuration(tt.durationMS, tt.tolerance); got != tt.want {
				t.Errorf("RoundDuration(%d, %d) = %d, want %d", tt.durationMS, tt.tolerance, got, tt.want)
			}
		})
	}
}

func TestTrackKey(t *testing.T) {
	t.Run("isrc takes precedence", func(t *testing.T) {
		track := models.Track{Title: "Song", Artists: []string{"A"}, DurationMS: 200000, ISRC: "USRC17607839"}
		if got := TrackKey(track, DefaultToleranceMS); got != "isrc:USRC17607839" {
			t.Errorf("expected isrc key, got %q", got)
		}
	})

	t.Run("metadata key", func(t *testing.T) {
		track := models.Track{Title: "Bohemian Rhapsody", Artists: []string{"Queen"}, DurationMS: 354320}
		want := "meta:bohemian rhapsody::queen::354000"
		if got := TrackKey(track, DefaultToleranceMS); got != want {
			t.Errorf("TrackKey = %q, want %q", got, want)
		}
	})

	t.Run("artist order does not change the key", func(t *testing.T) {
		a := models.Track{Title: "Duet", Artists: []string{"Alpha", "Beta"}, DurationMS: 180000}
		b := models.Track{Title: "Duet", Artists: []string{"Beta", "Alpha"}, DurationMS: 180000}
		if TrackKey(a, DefaultToleranceMS) != TrackKey(b, DefaultToleranceMS) {
			t.Error("artist permutation should not change the identity key")
		}
	})

	t.Run("near durations share a key", func(t *testing.T) {
		a := models.Track{Title: "Song", Artists: []string{"A"}, DurationMS: 199900}
		b := models.Track{Title: "Song", Artists: []string{"A"}, DurationMS: 200100}
		if TrackKey(a, DefaultToleranceMS) != TrackKey(b, DefaultToleranceMS) {
			t.Error("durations within tolerance should share an identity key")
		}
	})
}
