package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/session"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	session     *session.Session
	db          *sql.DB
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Session     *session.Session
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		session:     opts.Session,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, playlistsCommand, tracksCommand, albumCommand,
		recentCommand, featuredCommand, releasesCommand, playlistCommand, playerCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, applies environment
// overrides and sets the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if err := r.loadConfig(); err != nil {
		return ctx, err
	}

	level := r.config.Log.Level
	if cmd.Bool("debug") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLevel(level))
	return ctx, nil
}

// After releases the database handle.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close closes the database, if it was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the runner's logger, e.g. with a file logger for the TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig reads the config file when present, falling back to defaults.
func (r *Runner) loadConfig() error {
	if r.config != nil {
		return nil
	}

	config := shared.DefaultConfig()
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			loaded, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return err
			}
			config = loaded
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if err := config.ApplyEnv(".env"); err != nil {
		return err
	}
	r.config = config
	return nil
}

// Session opens the database and builds the authenticated session once.
func (r *Runner) Session() (*session.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	if err := r.loadConfig(); err != nil {
		return nil, err
	}
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'spx setup' and set spotify.client_id)", err)
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	s, err := session.New(session.ConfigFrom(r.config.Spotify), session.Options{
		Store:      repositories.NewKVRepository(db),
		HTTPClient: r.httpClient,
		Logger:     r.logger,
		RateLimit:  r.config.Spotify.RateLimit,
		MaxRetries: r.config.Spotify.MaxRateLimitRetries,
		Navigate:   r.openBrowser,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	r.db = db
	r.session = s
	return s, nil
}

// authed returns the session, failing early when there is no stored token.
func (r *Runner) authed(ctx context.Context) (*session.Session, error) {
	s, err := r.Session()
	if err != nil {
		return nil, err
	}
	if !s.IsAuthenticated(ctx) {
		return nil, fmt.Errorf("%w: run 'spx auth login' first", shared.ErrNotAuthenticated)
	}
	return s, nil
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, markdown, csv, json)",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Shortcut for --format json",
		},
	}
}

func (r *Runner) format(cmd *cli.Command) (formatter.Format, error) {
	if cmd.Bool("json") {
		return formatter.JSON, nil
	}
	return formatter.ParseFormat(cmd.String("format"))
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	if err := formatter.WriteJSON(r.output, data, pretty); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// requireArg returns the first positional argument or a missing-argument error.
func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}
