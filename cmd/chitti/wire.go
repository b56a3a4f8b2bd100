package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aravindhsampath/chitti/internal/config"
	"github.com/aravindhsampath/chitti/internal/logging"
	"github.com/aravindhsampath/chitti/internal/metrics"
	"github.com/aravindhsampath/chitti/pkg/brainclient"
	"github.com/aravindhsampath/chitti/pkg/conductor"
	"github.com/aravindhsampath/chitti/pkg/frontend/terminal"
	"github.com/aravindhsampath/chitti/pkg/toolsystem"
)

// runConductor wires the Brain Client, Tool Registry, and Conductor
// together over a terminal Frontend Bridge, probes the brain once at
// startup, and drives Run until the operator quits or stdin closes.
func runConductor(cmd *cobra.Command, settings *config.Settings, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brain := brainclient.New(
		settings.Brain.BaseURL,
		settings.Brain.Credential,
		brainclient.WithTimeout(settings.Brain.RequestTimeout),
	)

	reg := toolsystem.NewRegistry()
	if settings.Tools.Bash.Enabled {
		bash := toolsystem.NewBashTool()
		bash.Timeout = settings.Tools.Bash.Timeout
		bash.MaxOutputBytes = settings.Tools.Bash.MaxOutputBytes
		if err := reg.Register(bash); err != nil {
			return fmt.Errorf("chitti: failed to register bash tool: %w", err)
		}
	}

	if err := brain.Probe(ctx, settings.Brain.DefaultModel); err != nil {
		return fmt.Errorf("chitti: startup probe failed: %w", err)
	}

	mets := metrics.New()
	bridge := terminal.New(os.Stdin, cmd.OutOrStdout(), settings.Frontend.Prompt)

	cond := conductor.New(brain, reg, bridge, conductor.Config{
		Model:              settings.Brain.DefaultModel,
		MaxTurnRoundtrips:  settings.Conductor.MaxTurnRoundtrips,
		AuthorizeByDefault: settings.Conductor.AuthorizeByDefault,
	}, conductor.WithLogger(log), conductor.WithMetrics(mets))

	log.Infof("chitti: starting with model=%s base_url=%s", settings.Brain.DefaultModel, settings.Brain.BaseURL)

	if err := cond.Run(ctx); err != nil {
		if errors.Is(err, conductor.ErrQuit) {
			log.Infof("chitti: operator quit")
			return nil
		}
		return err
	}
	return nil
}
