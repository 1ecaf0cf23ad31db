package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohans/arqmon/internal/config"
	applog "github.com/mohans/arqmon/internal/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "arqmon",
	Short:         "Observe an arq job queue",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "arqmon:", err)
		os.Exit(1)
	}
}

// bootstrap loads the config and builds the logger every command starts from.
func bootstrap() (*config.Config, *applog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := applog.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
