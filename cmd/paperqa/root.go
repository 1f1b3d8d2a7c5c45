package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/paperqa"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	"github.com/siherrmann/paperqa/server"
	"github.com/spf13/cobra"
)

// service is what the commands need from PaperQA.
type service interface {
	server.Service
	IngestFile(ctx context.Context, path string) (*model.IngestManifest, error)
	Close() error
}

var (
	configPath string
	logLevel   string
)

// openService connects to the configured stores and providers. Tests replace it.
var openService = func(ctx context.Context, config *helper.Configuration) (service, error) {
	p, err := paperqa.NewPaperQA(ctx, config)
	if err != nil {
		return nil, err
	}
	return p, nil
}

var rootCmd = &cobra.Command{
	Use:   "paperqa",
	Short: "Ask questions about your papers",
	Long: `paperqa ingests PDF, text and markdown documents, indexes their passages
as embeddings and answers questions with numbered citations.

Configuration is read from the environment (and a .env file), optionally
overlaid by a yaml file given with --config.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a yaml configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfiguration reads the configuration and applies the flags.
func loadConfiguration() (*helper.Configuration, error) {
	config, err := helper.NewConfiguration(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	return config, nil
}

// withService runs fn with an open service and closes it afterwards.
func withService(cmd *cobra.Command, fn func(ctx context.Context, s service, config *helper.Configuration) error) error {
	config, err := loadConfiguration()
	if err != nil {
		return err
	}

	s, err := openService(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(cmd.Context(), s, config)
}

func newLogger(config *helper.Configuration) *slog.Logger {
	return helper.NewLogger(os.Stderr, config.LogLevel)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
