package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func checkpointCommand(r *Runner) *cli.Command {
	jobFlag := &cli.StringFlag{
		Name:     "job",
		Usage:    "Job identifier",
		Required: true,
	}
	storeFlag := &cli.StringFlag{
		Name:  "store",
		Usage: "Checkpoint backend (file or sqlite)",
		Value: "file",
	}

	return &cli.Command{
		Name:  "checkpoint",
		Usage: "Inspect and clear transfer checkpoints",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List checkpoints recorded for a job",
				Flags: []cli.Flag{
					jobFlag, storeFlag,
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: r.CheckpointList,
			},
			{
				Name:  "clear",
				Usage: "Delete a checkpoint so the next run starts fresh",
				Flags: []cli.Flag{
					jobFlag, storeFlag,
					&cli.StringFlag{
						Name:     "playlist",
						Usage:    "Playlist identifier ('likes' for a likes transfer)",
						Required: true,
					},
				},
				Action: r.CheckpointClear,
			},
		},
	}
}

// CheckpointList shows every checkpoint a job has written.
func (r *Runner) CheckpointList(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")

	store, err := idempotencyStore(r.config, cmd.String("store"), nil)
	if err != nil {
		return err
	}

	checkpoints, err := store.ListForJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(checkpoints, true)
	}

	if len(checkpoints) == 0 {
		r.writePlain("No checkpoints found for job %s\n", jobID)
		return nil
	}

	r.writePlain("Found %d checkpoint(s) for job %s:\n\n", len(checkpoints), jobID)
	for _, cp := range checkpoints {
		r.writePlain("Playlist: %s\n", cp.PlaylistID)
		r.writePlain("  Stage: %s\n", cp.Stage)
		r.writePlain("  Progress: %d/%d tracks, batch %d\n", cp.Metadata.ProcessedTracks, cp.Metadata.TotalTracks, cp.BatchIndex)
		r.writePlain("  Written: %d identifiers\n", len(cp.AddedUris))
		r.writePlain("  Updated: %s\n\n", cp.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

// CheckpointClear removes one checkpoint.
func (r *Runner) CheckpointClear(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")
	playlistID := cmd.String("playlist")

	store, err := idempotencyStore(r.config, cmd.String("store"), nil)
	if err != nil {
		return err
	}

	if err := store.Delete(jobID, playlistID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	r.logger.Info("checkpoint cleared", "job", jobID, "playlist", playlistID)
	r.writePlain("✓ Checkpoint cleared for job %s, playlist %s\n", jobID, playlistID)
	return nil
}
