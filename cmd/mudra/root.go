package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/store"
)

var (
	configPath string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mudra",
	Short: "Gesture, expression and blink driven desktop control",
	Long: `Mudra watches a camera feed, recognises hand gestures, facial expressions
and blink patterns, and runs the plugin action bound to each one.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default ~/.mudra/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{Path: configPath, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// setup loads config, builds the logger and opens the store.
func setup() (*config.Config, *zap.Logger, *store.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, sync, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		sync()
		return nil, nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
		sync()
	}
	return cfg, logger, st, cleanup, nil
}
