package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/odelab/internal/cas"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/explain"
	"github.com/san-kum/odelab/internal/logging"
	"github.com/san-kum/odelab/internal/solver"
	"github.com/san-kum/odelab/internal/viz"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	theme      string

	cfg    *config.Config
	logger *slog.Logger
)

// main registers the command tree and runs it. With no subcommand it opens
// the interactive solver.
func main() {
	rootCmd := &cobra.Command{
		Use:           "odelab",
		Short:         "ordinary differential equation solver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("data") {
				cfg.Storage.DataDir = dataDir
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			logger = logging.Setup(cfg.Log, os.Stderr)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			return viz.RunInteractive(svc, theme)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "run store directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	rootCmd.AddCommand(
		solveCommand(),
		systemCommand(),
		classifyCommand(),
		normalizeCommand(),
		batchCommand(),
		serveCommand(),
		runsCommand(),
		plotCommand(),
		exportCommand(),
		presetsCommand(),
		initConfigCommand(),
		&cobra.Command{
			Use:   "tui",
			Short: "interactive terminal solver",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := newService(cmd.Context())
				if err != nil {
					return err
				}
				return viz.RunInteractive(svc, theme)
			},
		},
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, viz.RenderError(viz.NewStyles(viz.GetTheme(theme)), err))
		os.Exit(1)
	}
}

// newService wires the solver from the loaded config.
func newService(ctx context.Context) (*solver.Service, error) {
	var ex solver.Explainer = explain.Disabled{}
	if cfg.Explain.Provider == "gemini" {
		g, err := explain.NewGemini(ctx, logger, cfg.ExplainOptions())
		if err != nil {
			return nil, err
		}
		ex = g
	}
	return solver.NewService(logger, cas.New(), ex, solver.Options{
		Defaults:     cfg.NumericDefaults(),
		MaxWorkload:  cfg.Numeric.MaxWorkload,
		SolveTimeout: cfg.Server.SolveTimeout,
		Workers:      cfg.Numeric.Workers,
	}), nil
}

func styles() viz.Styles {
	return viz.NewStyles(viz.GetTheme(theme))
}
