package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-docs/pkg/simpledocs"
	"github.com/tendant/simple-docs/pkg/simpledocs/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand(loadFromEnv)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is what every command works against
type app struct {
	gateway  *simpledocs.Gateway
	dropzone func(simpledocs.Category) simpledocs.Rules
}

type appLoader func(cmd *cobra.Command) (*app, error)

// loadFromEnv builds the gateway from .env and the process environment
func loadFromEnv(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	gw, err := cfg.BuildGateway(logger)
	if err != nil {
		return nil, err
	}
	return &app{gateway: gw, dropzone: cfg.DropzoneRules}, nil
}

func NewRootCommand(load appLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docs",
		Short: "Document manager CLI",
		Long: `Command line access to the document store.

Uploads PDFs (with provenance embedded) and spreadsheets, lists, inspects,
presigns and deletes stored documents. Configuration is read from the
environment, see "docs env".`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewUploadCommand(load, simpledocs.CategoryPDF))
	rootCmd.AddCommand(NewUploadCommand(load, simpledocs.CategoryExcel))
	rootCmd.AddCommand(NewListCommand(load))
	rootCmd.AddCommand(NewRemoveCommand(load))
	rootCmd.AddCommand(NewHeadCommand(load))
	rootCmd.AddCommand(NewPresignCommand(load))
	rootCmd.AddCommand(NewEnvCommand())

	return rootCmd
}
