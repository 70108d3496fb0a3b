package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"scrapejob/pkg/app"
	"scrapejob/pkg/config"
	"scrapejob/pkg/logger"
	"scrapejob/pkg/telemetry"
)

var (
	configPath string
	verbose    bool

	application *app.App
	tel         telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:           "scrapejob",
	Short:         "scrapejob renders pages, extracts records and appends them to stored collections.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

		tel, err = telemetry.Setup(cmd.Context(), cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		application, err = app.New(cmd.Context(), cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetConfigPath(), "path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if application != nil {
		errs = append(errs, application.Close())
		application = nil
	}
	errs = append(errs, tel.Shutdown(ctx))
	tel = telemetry.Telemetry{}
	return errors.Join(errs...)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if serr := shutdown(); serr != nil {
			slog.Error("shutdown failed", "err", serr)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
