// package idempotency provides the content-addressed snapshot hash and the
// durable checkpoint records that make playlist transfers resumable and
// safe to retry.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/normalize"
)

// emptySnapshotSeed produces the fixed sentinel digest for an empty track
// set, distinguishing "confirmed empty" from "not yet computed".
const emptySnapshotSeed = "empty_snapshot"

// EmptySnapshotHash returns the well-known digest for an empty collection.
func EmptySnapshotHash() string {
	sum := sha256.Sum256([]byte(emptySnapshotSeed))
	return hex.EncodeToString(sum[:])
}

// SnapshotHash computes an order-independent digest over the identity keys
// of a track collection. Re-scanning an unchanged catalog yields the same
// value regardless of enumeration order, which lets callers detect source
// drift between runs without re-matching.
func SnapshotHash(tracks []models.Track) string {
	if len(tracks) == 0 {
		return EmptySnapshotHash()
	}

	keys := make([]string, len(tracks))
	for i, track := range tracks {
		keys[i] = normalize.TrackKey(track, normalize.DefaultToleranceMS)
	}
	sort.Strings(keys)

	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}
