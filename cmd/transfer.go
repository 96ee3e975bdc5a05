package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Jekudy/MuSync/internal/idempotency"
	"github.com/Jekudy/MuSync/internal/matching"
	"github.com/Jekudy/MuSync/internal/metrics"
	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/pipeline"
	"github.com/Jekudy/MuSync/internal/reporting"
	"github.com/Jekudy/MuSync/internal/shared"
	"github.com/Jekudy/MuSync/internal/ui"
)

func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer playlists and likes from Yandex Music to Spotify",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Transfer one playlist",
				Flags: append(transferFlags(),
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source playlist name or ID",
						Required: true,
					},
				),
				Action: r.TransferRun,
			},
			{
				Name:   "likes",
				Usage:  "Transfer liked tracks into the Spotify library",
				Flags:  transferFlags(),
				Action: r.TransferLikes,
			},
		},
	}
}

func transferFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "job",
			Usage: "Job identifier; reuse to resume an interrupted transfer",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Preview matches without writing to Spotify",
		},
		&cli.StringFlag{
			Name:  "risk-mode",
			Usage: "Match acceptance mode (strict or balanced)",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Checkpoint backend (file or sqlite)",
			Value: "file",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a report in the given format (json, csv, markdown, text)",
		},
		&cli.StringFlag{
			Name:  "report-file",
			Usage: "Report output path",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write job metrics JSON to this path",
		},
	}
}

// idempotencyStore builds the checkpoint backend. A nil db opens the
// configured database when the sqlite backend is requested.
func idempotencyStore(config *shared.Config, kind string, db *sql.DB) (idempotency.Store, error) {
	switch kind {
	case "sqlite":
		if db == nil {
			var err error
			db, err = shared.NewDatabase(config.Database.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
			}
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		}
		store, err := idempotency.NewSQLiteStore(db)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "file", "":
		store, err := idempotency.NewFileStore(config.Transfer.CheckpointDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown checkpoint store '%s'", shared.ErrInvalidArgument, kind)
	}
}

// buildMatcher applies config thresholds on top of the defaults, with an
// optional risk-mode override from the command line.
func (r *Runner) buildMatcher(riskModeFlag string) *matching.Matcher {
	matcher := matching.NewMatcher()
	if r.config.Transfer.ExactThreshold > 0 {
		matcher.ExactThreshold = r.config.Transfer.ExactThreshold
	}
	if r.config.Transfer.FuzzyThreshold > 0 {
		matcher.FuzzyThreshold = r.config.Transfer.FuzzyThreshold
	}
	if r.config.Transfer.RiskMode != "" {
		matcher.RiskMode = r.config.Transfer.RiskMode
	}
	if riskModeFlag != "" {
		matcher.RiskMode = riskModeFlag
	}
	return matcher
}

// TransferRun runs a full Yandex Music → Spotify playlist sync.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	sourceIDOrName := cmd.String("source")
	dryRun := cmd.Bool("dry-run")

	jobID := cmd.String("job")
	if jobID == "" {
		jobID = shared.GenerateID()
	}

	source, err := r.sourceProvider()
	if err != nil {
		return err
	}
	target, err := r.targetProvider(ctx)
	if err != nil {
		return err
	}

	sourcePlaylist, err := r.findSourcePlaylist(ctx, sourceIDOrName)
	if err != nil {
		return err
	}

	tracks, err := source.ListTracks(ctx, sourcePlaylist.ID)
	if err != nil {
		return fmt.Errorf("failed to scan source playlist: %w", err)
	}
	snapshotHash := idempotency.SnapshotHash(tracks)

	store, err := idempotencyStore(r.config, cmd.String("store"), nil)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(jobID, snapshotHash)
	report := reporting.NewReport(jobID, snapshotHash, dryRun)

	pipe := pipeline.NewTransferPipeline(source, target, r.buildMatcher(cmd.String("risk-mode")), store, pipeline.Options{
		BatchSize:  r.config.Transfer.BatchSize,
		MaxRetries: r.config.Transfer.MaxRetries,
		TopK:       r.config.Transfer.TopK,
		Logger:     r.logger,
		Collector:  collector,
		Observer:   report,
	})

	r.logger.Info("starting transfer", "source", sourcePlaylist.Name, "job", jobID, "dryRun", dryRun)
	r.writePlain("Starting playlist transfer...\n")
	r.writePlain("Source: %s (%d tracks)\n", sourcePlaylist.Name, len(tracks))
	r.writePlain("Job: %s\n\n", jobID)

	progressCh := make(chan pipeline.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case pipeline.Scanning:
				r.writePlain("📥 %s\n", update.Message)
			case pipeline.Resuming:
				r.writePlain("⏩ %s\n", update.Message)
			case pipeline.Matching:
				r.writePlain("   %s\n", update.Message)
			case pipeline.Writing:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := pipe.TransferPlaylist(ctx, *sourcePlaylist, jobID, snapshotHash, dryRun, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.printSummary(result, dryRun)
	report.AddPlaylist(result)
	return r.writeArtifacts(cmd, report, collector)
}

// TransferLikes syncs liked tracks into the Spotify saved library.
func (r *Runner) TransferLikes(ctx context.Context, cmd *cli.Command) error {
	dryRun := cmd.Bool("dry-run")

	jobID := cmd.String("job")
	if jobID == "" {
		jobID = shared.GenerateID()
	}

	source, err := r.sourceProvider()
	if err != nil {
		return err
	}
	target, err := r.targetProvider(ctx)
	if err != nil {
		return err
	}

	store, err := idempotencyStore(r.config, cmd.String("store"), nil)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(jobID, "")
	report := reporting.NewReport(jobID, "", dryRun)

	pipe := pipeline.NewTransferPipeline(source, target, r.buildMatcher(cmd.String("risk-mode")), store, pipeline.Options{
		BatchSize:  r.config.Transfer.BatchSize,
		MaxRetries: r.config.Transfer.MaxRetries,
		TopK:       r.config.Transfer.TopK,
		Logger:     r.logger,
		Collector:  collector,
		Observer:   report,
	})

	r.writePlain("Starting likes transfer (job %s)...\n\n", jobID)

	progressCh := make(chan pipeline.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("   %s\n", update.Message)
		}
	}()

	result, err := pipe.TransferLikes(ctx, jobID, dryRun, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.printSummary(result, dryRun)
	report.AddPlaylist(result)
	return r.writeArtifacts(cmd, report, collector)
}

// findSourcePlaylist resolves a playlist by ID first, then by
// case-insensitive name among owned playlists.
func (r *Runner) findSourcePlaylist(ctx context.Context, idOrName string) (*models.Playlist, error) {
	source, err := r.sourceProvider()
	if err != nil {
		return nil, err
	}

	playlists, err := source.ListOwnedPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source playlists: %w", err)
	}

	for i := range playlists {
		if playlists[i].ID == idOrName {
			return &playlists[i], nil
		}
	}
	for i := range playlists {
		if strings.EqualFold(playlists[i].Name, idOrName) {
			return &playlists[i], nil
		}
	}

	return nil, fmt.Errorf("%w: playlist '%s' not found among %d owned playlists", shared.ErrNotFound, idOrName, len(playlists))
}

func (r *Runner) printSummary(result *models.TransferResult, dryRun bool) {
	title := "Transfer Complete!"
	if dryRun {
		title = "Dry Run Complete"
	}
	r.writePlain("\n")
	r.writePlainHeader(title)
	r.writePlain("Playlist: %s (%d tracks)\n", result.PlaylistName, result.TotalTracks)
	r.writePlain("Matched: %s\n", ui.OK(fmt.Sprintf("%d/%d", result.MatchedTracks, result.TotalTracks)))
	if !dryRun {
		r.writePlain("Added: %d (duplicates: %d)\n", result.AddedTracks, result.DuplicateTracks)
	}
	if result.NotFoundTracks > 0 {
		r.writePlain("Not found: %s\n", ui.Warn(fmt.Sprintf("%d", result.NotFoundTracks)))
	}
	if result.FailedTracks > 0 {
		r.writePlain("Failed: %s\n", ui.Err(fmt.Sprintf("%d", result.FailedTracks)))
	}
	for _, msg := range result.Errors {
		r.writePlain("  - %s\n", msg)
	}
	r.writePlain("Duration: %s\n", shared.FormatDuration(int(result.DurationMS)))
}

// writeArtifacts persists the optional report and metrics files.
func (r *Runner) writeArtifacts(cmd *cli.Command, report *reporting.Report, collector *metrics.Collector) error {
	if format := cmd.String("report"); format != "" {
		path, err := reporting.WriteReport(report, format, cmd.String("report-file"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", path)
	}
	if path := cmd.String("metrics-file"); path != "" {
		if err := collector.SaveToFile(path); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		r.writePlain("✓ Metrics written to %s\n", path)
	}
	return nil
}
