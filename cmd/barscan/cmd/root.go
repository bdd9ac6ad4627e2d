package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/version"
)

// cli holds the state shared by one command tree.
type cli struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
}

// NewRootCommand builds the barscan command tree. Each call returns an
// independent tree with its own configuration loader.
func NewRootCommand() *cobra.Command {
	c := &cli{loader: config.NewIsolatedLoader()}

	rootCmd := &cobra.Command{
		Use:   "barscan",
		Short: "Barcode and QR code decoder",
		Long: `barscan decodes barcodes from images and PDF documents.

It supports QR Code, Data Matrix, Aztec, PDF417 and the common linear
symbologies (EAN, UPC, Code 39/93/128, Codabar, ITF). Decoding can be
restricted to a set of formats and to a centered crop of each image.

Examples:
  barscan decode label.png
  barscan decode --formats QR_CODE --crop-width 400 photo.jpg
  barscan batch --recursive --format csv scans/
  barscan pdf --pages 1-3 shipment.pdf
  barscan serve --port 8080`,
		Version:       version.Info().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			setupLogging(cmd, c.cfg)
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "",
		"config file (default is search in ., ./config, $HOME/.config/barscan, /etc/barscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	v := c.loader.GetViper()
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(
		newDecodeCommand(c),
		newBatchCommand(c),
		newPDFCommand(c),
		newServeCommand(c),
		newFormatsCommand(),
		newConfigCommand(c),
		newVersionCommand(),
		newBenchCommand(c),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (c *cli) loadConfig(cmd *cobra.Command) error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := c.loader.LoadWithFile(c.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	c.cfg = cfg
	slog.Debug("Configuration loaded", "file", c.loader.GetConfigFileUsed(), "command", cmd.Name())
	return nil
}

// config returns the resolved configuration. Flags bound to viper are
// already reflected; command flags are applied by each command.
func (c *cli) config() *config.Config {
	if c.cfg == nil {
		d := config.DefaultConfig()
		return &d
	}
	return c.cfg
}

// setupLogging installs a JSON slog handler on stderr so that results on
// stdout stay machine readable.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
