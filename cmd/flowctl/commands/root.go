// Package commands implements the flowctl command line: inspect the
// onboarding position, run steps, and serve the HTTP API.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/config"
	"github.com/garyjia/lottery-onboarding/internal/container"
	"github.com/garyjia/lottery-onboarding/pkg/utils"
)

var (
	configPath string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *zap.Logger
)

// Execute runs the root command
func Execute() error {
	root := &cobra.Command{
		Use:           "flowctl",
		Short:         "Walk an account through the lottery market onboarding flow",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}

			level := logLevel
			if level == "" {
				level = "warn"
			}
			logger, err = utils.NewCLILogger(level)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "config file (empty to use defaults and environment only)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level on stderr (default warn)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")

	root.AddCommand(statusCmd(), nextCmd(), invokeCmd(), historyCmd(), serveCmd())
	return root.ExecuteContext(context.Background())
}

// startApp builds the container and takes a first snapshot
func startApp(ctx context.Context, workers bool) (*container.Container, error) {
	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx, workers); err != nil {
		return nil, err
	}

	if _, err := c.Flow().Service.Refresh(ctx); err != nil {
		logger.Warn("Some signals could not be read", zap.Error(err))
	}
	return c, nil
}

func closeApp(c *container.Container) {
	if err := c.Close(); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

// failure prefers the message the session shows the user
func failure(c *container.Container, err error) error {
	if msg, ok := c.Flow().Session.Reporter().Current(); ok {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}
