package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Transfer.BatchSize != 100 {
		t.Errorf("expected batch_size 100, got %d", config.Transfer.BatchSize)
	}
	if config.Transfer.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", config.Transfer.TopK)
	}
	if config.Transfer.RiskMode != "strict" {
		t.Errorf("expected risk_mode strict, got %q", config.Transfer.RiskMode)
	}
	if config.Transfer.ExactThreshold != 0.95 {
		t.Errorf("expected exact_threshold 0.95, got %v", config.Transfer.ExactThreshold)
	}
	if config.Transfer.CheckpointDir != "checkpoints" {
		t.Errorf("expected checkpoint_dir checkpoints, got %q", config.Transfer.CheckpointDir)
	}
	if config.Database.Path != "musync.db" {
		t.Errorf("expected database path musync.db, got %q", config.Database.Path)
	}
	if config.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", config.Server.Port)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses a custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[credentials.yandex]
oauth_token = "y-token"

[transfer]
batch_size = 25
risk_mode = "balanced"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Credentials.Yandex.OAuthToken != "y-token" {
			t.Errorf("expected yandex token, got %q", config.Credentials.Yandex.OAuthToken)
		}
		if config.Transfer.BatchSize != 25 {
			t.Errorf("expected batch_size 25, got %d", config.Transfer.BatchSize)
		}
		if config.Transfer.RiskMode != "balanced" {
			t.Errorf("expected risk_mode balanced, got %q", config.Transfer.RiskMode)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	if err := CreateConfigFile(path); err == nil {
		t.Error("expected an error when the file already exists")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-id"
	config.Credentials.Spotify.AccessToken = "access"
	config.Credentials.Spotify.RefreshToken = "refresh"
	config.Credentials.Spotify.TokenExpiry = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Credentials.Spotify.AccessToken != "access" {
		t.Errorf("access token lost on round trip: %q", loaded.Credentials.Spotify.AccessToken)
	}
	if loaded.Credentials.Spotify.RefreshToken != "refresh" {
		t.Errorf("refresh token lost on round trip: %q", loaded.Credentials.Spotify.RefreshToken)
	}
	if !loaded.Credentials.Spotify.TokenExpiry.Equal(config.Credentials.Spotify.TokenExpiry) {
		t.Errorf("token expiry lost on round trip: %v", loaded.Credentials.Spotify.TokenExpiry)
	}
}

func TestSpotifyConfigUpdate(t *testing.T) {
	t.Run("stores tokens", func(t *testing.T) {
		var config SpotifyConfig
		token := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now()}
		if err := config.Update(token); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.AccessToken != "a" || config.RefreshToken != "r" {
			t.Errorf("tokens not stored: %+v", config)
		}
	})

	t.Run("keeps the old refresh token", func(t *testing.T) {
		config := SpotifyConfig{RefreshToken: "old-refresh"}
		if err := config.Update(&oauth2.Token{AccessToken: "a"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.RefreshToken != "old-refresh" {
			t.Errorf("refresh token overwritten: %q", config.RefreshToken)
		}
	})

	t.Run("rejects empty token", func(t *testing.T) {
		var config SpotifyConfig
		if err := config.Update(nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSpotifyConfigToken(t *testing.T) {
	var empty SpotifyConfig
	if empty.Token() != nil {
		t.Error("expected nil token before authentication")
	}

	config := SpotifyConfig{AccessToken: "a", RefreshToken: "r"}
	token := config.Token()
	if token == nil {
		t.Fatal("expected a token")
	}
	if token.AccessToken != "a" || token.TokenType != "Bearer" {
		t.Errorf("unexpected token: %+v", token)
	}
}
