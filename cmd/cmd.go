package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Jekudy/MuSync/internal/providers"
	"github.com/Jekudy/MuSync/internal/shared"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and checkpoint database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// Setup creates the config file if absent and bootstraps the checkpoint
// database schema.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	r.config = config
	r.configPath = configPath

	r.logger.Info("initializing checkpoint database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if _, err := idempotencyStore(config, "sqlite", db); err != nil {
		return fmt.Errorf("failed to bootstrap checkpoint schema: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Setup complete\n")
	r.writePlain("Edit %s with your Spotify and Yandex credentials, then run 'musync auth spotify'\n", configPath)
	return nil
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List owned playlists on the source or target service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "service",
				Usage: "Service to list (yandex or spotify)",
				Value: "yandex",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Playlists,
	}
}

// Playlists lists owned playlists for the requested service.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	service := cmd.String("service")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	provider, err := r.resolveProvider(ctx, service)
	if err != nil {
		return err
	}

	r.logger.Infof("listing %v playlists", provider.Name())

	playlists, err := provider.ListOwnedPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists on %s:\n\n", len(playlists), provider.Name())
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n\n", p.TrackCount)
	}

	return nil
}

// resolveProvider resolves a service name to its provider instance.
func (r *Runner) resolveProvider(ctx context.Context, service string) (providers.Provider, error) {
	switch service {
	case "yandex":
		return r.sourceProvider()
	case "spotify":
		return r.targetProvider(ctx)
	default:
		return nil, fmt.Errorf("%w: invalid service '%s' (must be 'yandex' or 'spotify')", shared.ErrInvalidArgument, service)
	}
}
