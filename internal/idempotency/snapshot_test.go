package idempotency

import (
	"testing"

	"github.com/Jekudy/MuSync/internal/models"
)

func TestSnapshotHash(t *testing.T) {
	tracks := []models.Track{
		{Title: "First", Artists: []string{"Artist A"}, DurationMS: 180000},
		{Title: "Second", Artists: []string{"Artist B"}, DurationMS: 210000, ISRC: "USRC17607839"},
		{Title: "Third", Artists: []string{"Artist C"}, DurationMS: 240000},
	}

	t.Run("deterministic", func(t *testing.T) {
		if SnapshotHash(tracks) != SnapshotHash(tracks) {
			t.Error("hash should be deterministic")
		}
	})

	t.Run("order independent", func(t *testing.T) {
		reordered := []models.Track{tracks[2], tracks[0], tracks[1]}
		if SnapshotHash(tracks) != SnapshotHash(reordered) {
			t.Error("hash should not depend on enumeration order")
		}
	})

	t.Run("content sensitive", func(t *testing.T) {
		changed := append([]models.Track{}, tracks...)
		changed[0].Title = "Different"
		if SnapshotHash(tracks) == SnapshotHash(changed) {
			t.Error("hash should change when a track changes")
		}
	})

	t.Run("empty sentinel", func(t *testing.T) {
		if SnapshotHash(nil) != EmptySnapshotHash() {
			t.Error("empty collection should produce the sentinel digest")
		}
		if SnapshotHash(nil) == SnapshotHash(tracks) {
			t.Error("sentinel should differ from a populated hash")
		}
	})

	t.Run("isrc dominates metadata", func(t *testing.T) {
		a := []models.Track{{Title: "Name A", Artists: []string{"X"}, DurationMS: 100000, ISRC: "QZ123"}}
		b := []models.Track{{Title: "Name B", Artists: []string{"Y"}, DurationMS: 200000, ISRC: "QZ123"}}
		if SnapshotHash(a) != SnapshotHash(b) {
			t.Error("tracks sharing an ISRC should produce the same hash")
		}
	})
}
