package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive player. The device connects in the
// background; browsing works while it is still connecting or after it fails.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File, r.config.Log)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	ctrl := r.newController(ctx, s, cmd.String("device"))
	defer func() {
		cancel()
		ctrl.Close()
	}()

	go func() {
		if err := ctrl.Start(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger.Error("player unavailable", "error", err)
			}
			return
		}
		ctrl.Run(ctx)
	}()

	model := ui.NewModel(ctx, s, ctrl)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
