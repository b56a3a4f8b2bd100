// Command chitti runs the conversational agent conductor over a terminal
// Frontend Bridge: it loads configuration, wires the Brain Client, tool
// registry, and conductor, and drives the REPL until /exit or EOF.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aravindhsampath/chitti/internal/config"
	"github.com/aravindhsampath/chitti/internal/logging"
	"github.com/aravindhsampath/chitti/pkg/brainclient"
)

// Exit codes: 0 normal, 1 configuration error, 2 fatal brain error surfaced
// during the startup probe.
const (
	exitOK          = 0
	exitConfigError = 1
	exitBrainFatal  = 2
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitFor(err))
	}
}

// exitErr carries a process exit code alongside a cobra command error.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func exitFor(err error) int {
	var ee *exitErr
	if as, ok := err.(*exitErr); ok {
		ee = as
		return ee.code
	}
	return exitConfigError
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chitti",
		Short:         "Chitti is a conversational agent conductor over a streaming LLM brain",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd)
		},
	}
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Inspect Chitti's configuration"}
	var skipProbe bool
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate chitti.yaml plus environment overrides, then probe the brain",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return &exitErr{code: exitConfigError, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: brain.default_model=%s brain.base_url=%s log.level=%s\n",
				settings.Brain.DefaultModel, settings.Brain.BaseURL, settings.Log.Level)

			if skipProbe {
				return nil
			}
			brain := brainclient.New(settings.Brain.BaseURL, settings.Brain.Credential,
				brainclient.WithTimeout(settings.Brain.RequestTimeout))
			if err := brain.Probe(cmd.Context(), settings.Brain.DefaultModel); err != nil {
				return &exitErr{code: exitBrainFatal, err: fmt.Errorf("brain probe failed: %w", err)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "brain probe ok")
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "skip the live brain probe and only validate configuration")
	configCmd.AddCommand(checkCmd)
	return configCmd
}

func runRepl(cmd *cobra.Command) error {
	settings, err := config.Load()
	if err != nil {
		return &exitErr{code: exitConfigError, err: err}
	}

	log, err := logging.Build(settings.Log.Level)
	if err != nil {
		return &exitErr{code: exitConfigError, err: err}
	}
	defer func() { _ = log.Sync() }()

	if err := runConductor(cmd, settings, log); err != nil {
		log.Errorf("chitti: %v", err)
		return &exitErr{code: exitBrainFatal, err: err}
	}
	return nil
}
