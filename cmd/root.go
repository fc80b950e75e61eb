// Package cmd defines and implements the CLI commands for the graphcrawler
// executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapmaker/graphcrawler/internal/config"
	"github.com/mapmaker/graphcrawler/internal/logging"
	"github.com/mapmaker/graphcrawler/internal/state"
)

var cfgFile string

type stateKeyType string

const stateKey stateKeyType = "state"

// newAppState is the composition-root factory. It's a variable so tests can
// substitute a fake without touching the filesystem or network. bootstrap
// logs config-loading problems only; the real, environment-tuned logger
// lives on the returned State.
var newAppState = func(ctx context.Context, bootstrap *zap.Logger) (*state.State, error) {
	cfg, err := config.Load(cfgFile, bootstrap)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Environment == "development")
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return state.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd(bootstrap *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "graphcrawler",
		Short: "An asynchronous single-domain web crawler and link-graph builder.",
		Long: `graphcrawler discovers same-origin link graphs by crawling a bounded
frontier per host and persisting each host's undirected link graph to disk
as compressed JSON. It exposes an HTTP API for submitting crawl tasks and
reading back graph summaries.`,

		// Runs after flag parsing but before any subcommand's RunE: the
		// composition root is built exactly once per invocation here.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			st, err := newAppState(cmd.Context(), bootstrap)
			if err != nil {
				return fmt.Errorf("initialize application state: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), stateKey, st))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if st, ok := cmd.Context().Value(stateKey).(*state.State); ok && st != nil {
				st.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to built-in settings plus CRAWLER_ env overrides)")

	root.AddCommand(newServeCmd())

	return root
}

// stateFromContext retrieves the *state.State built by PersistentPreRunE.
func stateFromContext(ctx context.Context) (*state.State, error) {
	st, ok := ctx.Value(stateKey).(*state.State)
	if !ok || st == nil {
		return nil, fmt.Errorf("cmd: application state missing from context")
	}
	return st, nil
}

// Execute is the main entry point.
func Execute() {
	bootstrap, err := logging.New(false)
	if err != nil {
		panic(fmt.Sprintf("build logger: %v", err))
	}
	defer func() { _ = bootstrap.Sync() }()

	if err := newRootCmd(bootstrap).Execute(); err != nil {
		bootstrap.Fatal("command execution failed", zap.Error(err))
	}
}
