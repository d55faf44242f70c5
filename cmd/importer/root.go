package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/koharu/importer/config"
	"github.com/koharu/importer/tracing"
)

const serviceName = "koharu-importer"

// commandContext carries state shared by every subcommand
type commandContext struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	tracer     *sdktrace.TracerProvider
	logOutput  io.Writer
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{logOutput: os.Stderr}

	rootCmd := &cobra.Command{
		Use:           "importer",
		Short:         "Normalize archive metadata and migrate legacy installations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", os.Getenv("IMPORTER_CONFIG"), "Configuration file path")

	rootCmd.AddCommand(newNormalizeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

// setup loads the configuration and installs the logger and tracer
func (c *commandContext) setup(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	// command output goes to stdout, so logs go to stderr
	var handler slog.Handler = slog.NewJSONHandler(c.logOutput, handlerOpts)
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(c.logOutput, handlerOpts)
	}
	c.logger = slog.New(handler)
	slog.SetDefault(c.logger)

	tp, err := tracing.InitTracer(ctx, serviceName)
	if err != nil {
		c.logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		return nil
	}
	c.tracer = tp
	return nil
}

func (c *commandContext) teardown() error {
	if c.tracer == nil {
		return nil
	}
	if err := c.tracer.Shutdown(context.Background()); err != nil {
		c.logger.Error("error shutting down tracer", "error", err)
	}
	c.tracer = nil
	return nil
}
