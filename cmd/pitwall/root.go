package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/pitwall/internal/app"
	"github.com/dshills/pitwall/internal/config"
	"github.com/dshills/pitwall/internal/router"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "pitwall",
		Short:         "Inspect and exercise the pitwall runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch g.logLevel {
			case "", "debug", "info", "warn", "error":
				return nil
			default:
				return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", g.logLevel)
			}
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("PITWALL_CONFIG"),
		"Path to a TOML or YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "",
		"Log level override (debug, info, warn, error)")

	root.AddCommand(
		newRoutesCmd(g),
		newMatchCmd(g),
		newURLCmd(g),
		newCheckCmd(g),
		newSimulateCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// buildRuntime loads the configuration and builds a runtime that logs to
// stderr and renders placeholders for every view.
func (g *globalFlags) buildRuntime(stderr io.Writer) (*app.Runtime, *router.MemoryHistory, *router.BufferTarget, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, level := app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: stderr,
	})
	history := router.NewMemoryHistory("/")
	target := router.NewBufferTarget()

	rt, err := app.New(cfg,
		app.WithLogger(logger, level),
		app.WithHistory(history),
		app.WithTarget(target),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	rt.RegisterPlaceholders()
	return rt, history, target, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pitwall %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
