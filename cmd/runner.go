package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/Jekudy/MuSync/internal/providers"
	"github.com/Jekudy/MuSync/internal/shared"
	"github.com/Jekudy/MuSync/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	source     providers.Provider
	target     providers.Provider
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     providers.Provider
	Target     providers.Provider
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		target:     opts.Target,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, transferCommand, checkpointCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// sourceProvider returns the configured source, constructing the Yandex
// provider lazily from credentials.
func (r *Runner) sourceProvider() (providers.Provider, error) {
	if r.source != nil {
		return r.source, nil
	}
	if r.config.Credentials.Yandex.OAuthToken == "" {
		return nil, fmt.Errorf("%w: yandex oauth_token must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}
	source, err := providers.NewYandexProvider(r.config.Credentials.Yandex.OAuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Yandex provider: %w", err)
	}
	r.source = source
	return source, nil
}

// targetProvider returns the configured target, constructing and
// authenticating the Spotify provider from persisted tokens.
func (r *Runner) targetProvider(ctx context.Context) (providers.Provider, error) {
	if r.target != nil {
		return r.target, nil
	}
	spotify := r.config.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}
	target, err := providers.NewSpotifyProvider(spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify provider: %w", err)
	}
	token := spotify.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'musync auth spotify' first", shared.ErrNotAuthenticated)
	}
	if err := target.Authenticate(ctx, token); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	r.target = target
	return target, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", ui.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
