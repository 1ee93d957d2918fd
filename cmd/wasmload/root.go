package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/app"
	"github.com/woxQAQ/wasmload/internal/config"
	"github.com/woxQAQ/wasmload/internal/logging"
	"github.com/woxQAQ/wasmload/internal/wasm"
)

// rootCommand keeps the state shared by all subcommands.
type rootCommand struct {
	cmd *cobra.Command

	configPath string
	logLevel   string
	stderrTTY  bool

	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func newRootCommand() *rootCommand {
	c := &rootCommand{}

	c.cmd = &cobra.Command{
		Use:               "wasmload",
		Short:             "Load and run wasm-bindgen WebAssembly modules",
		Version:           fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}

	flags := c.cmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "path to configuration file")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	c.cmd.AddCommand(
		newRunCommand(c),
		newExportsCommand(c),
		newManifestCommand(c),
		newPackagesCommand(c),
	)

	return c
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	c.logger, err = logging.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr(), c.stderrTTY)
	if err != nil {
		return err
	}

	c.app, err = app.New(cmd.Context(), cfg, c.logger)
	return err
}

// execute runs the command line and releases everything the command
// created, also when it failed.
func (c *rootCommand) execute(ctx context.Context) error {
	err := c.cmd.ExecuteContext(ctx)

	if c.app != nil {
		if closeErr := c.app.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}

	return err
}

// parseInput maps a command line argument to a loader input: no argument
// selects the default locator, "-" reads the module from stdin and
// anything else is a locator.
func parseInput(args []string, stdin io.Reader) (wasm.Input, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read module from stdin: %w", err)
		}
		return wasm.Bytes(data), nil
	}
	return wasm.Locator(args[0]), nil
}
