package idempotency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists checkpoints as one JSON document per
// (jobID, playlistID) pair under a checkpoint directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the checkpoint directory if needed and returns a
// store writing into it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// encodeKeyPart escapes everything outside [A-Za-z0-9.-], including the
// underscore, so the jobID/playlistID boundary in a filename stays
// unambiguous.
func encodeKeyPart(part string) string {
	var b strings.Builder
	for i := 0; i < len(part); i++ {
		c := part[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func (s *FileStore) path(jobID, playlistID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", encodeKeyPart(jobID), encodeKeyPart(playlistID)))
}

// Save writes the checkpoint, replacing any previous record for the pair.
func (s *FileStore) Save(checkpoint *Checkpoint) error {
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := s.path(checkpoint.JobID, checkpoint.PlaylistID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint for the pair, or returns (nil, nil) when no
// record exists.
func (s *FileStore) Load(jobID, playlistID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(jobID, playlistID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// Delete removes the checkpoint for the pair. Deleting an absent record
// is not an error.
func (s *FileStore) Delete(jobID, playlistID string) error {
	err := os.Remove(s.path(jobID, playlistID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// ListForJob returns every checkpoint stored for the job.
func (s *FileStore) ListForJob(jobID string) ([]*Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*Checkpoint
	prefix := encodeKeyPart(jobID) + "_"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read checkpoint %s: %w", name, err)
		}

		var checkpoint Checkpoint
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			return nil, fmt.Errorf("failed to parse checkpoint %s: %w", name, err)
		}
		checkpoints = append(checkpoints, &checkpoint)
	}
	return checkpoints, nil
}
