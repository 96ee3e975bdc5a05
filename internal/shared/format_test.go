package shared

import (
	"errors"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name       string
		durationMS int
		want       string
	}{
		{"zero", 0, "0:00"},
		{"under a minute", 45000, "0:45"},
		{"typical track", 213000, "3:33"},
		{"pads seconds", 61000, "1:01"},
		{"over an hour", 3725000, "62:05"},
		{"negative clamps", -100, "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.durationMS); got != tt.want {
				t.Errorf("FormatDuration(%d) = %q, want %q", tt.durationMS, got, tt.want)
			}
		})
	}
}

func TestRateLimitError(t *testing.T) {
	t.Run("carries the retry hint", func(t *testing.T) {
		err := NewRateLimitError(5 * time.Second)
		rl, ok := AsRateLimit(err)
		if !ok {
			t.Fatal("expected a rate limit error")
		}
		if rl.RetryAfter != 5*time.Second {
			t.Errorf("expected 5s, got %v", rl.RetryAfter)
		}
	})

	t.Run("defaults to one second", func(t *testing.T) {
		err := NewRateLimitError(0)
		rl, _ := AsRateLimit(err)
		if rl.RetryAfter != time.Second {
			t.Errorf("expected 1s default, got %v", rl.RetryAfter)
		}
	})

	t.Run("wrapped errors unwrap", func(t *testing.T) {
		wrapped := errors.Join(errors.New("request failed"), NewRateLimitError(2*time.Second))
		if _, ok := AsRateLimit(wrapped); !ok {
			t.Error("expected AsRateLimit to see through wrapping")
		}
	})

	t.Run("unrelated errors pass through", func(t *testing.T) {
		if _, ok := AsRateLimit(errors.New("nope")); ok {
			t.Error("expected no rate limit error")
		}
	})
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(ErrPermanentFailure) {
		t.Error("ErrPermanentFailure should be permanent")
	}
	if !IsPermanent(ErrNotFound) {
		t.Error("ErrNotFound should be permanent")
	}
	if IsPermanent(ErrTemporaryFailure) {
		t.Error("ErrTemporaryFailure should not be permanent")
	}
}
