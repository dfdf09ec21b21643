package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the config template when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := config.ApplyEnv(".env"); err != nil {
			return err
		}
		r.config = config
		r.writePlain("✓ Config written to %s\n", configPath)
	}

	if err := r.loadConfig(); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("reset") {
		r.logger.Warn("resetting database", "path", r.config.Database.Path)
		if err := shared.ResetDatabase(db); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}
	for _, st := range states {
		r.logger.Debug("migration", "version", st.Version, "name", st.Name, "applied", st.Applied)
	}
	r.logger.Info("setup complete", "database", r.config.Database.Path, "migrations", len(states))

	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	if err := r.config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set spotify.client_id in %s (or SPX_CLIENT_ID)\n", configPath)
		r.writePlain("2. Run 'spx auth login'\n")
	}
	return nil
}
