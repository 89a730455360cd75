package main

import (
	"fmt"
	"io"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reqapi/internal/config"
	"reqapi/internal/logger"
)

// @title Requirement API
// @version 1.0
// @BasePath /
func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

// execute runs the command tree and returns the process exit code.
// Errors are printed here once, since the root silences cobra's own output.
func execute(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "api",
		Short:         "Requirement-to-code HTTP service",
		Long:          "Accepts requirements over HTTP, stores them, generates code with an AI provider and appends the pair to a Google Sheet.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Bare "api" runs the server.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// bootstrap loads configuration and builds the process logger.
// Configuration is read once here; nothing below reads the environment.
func bootstrap() (*config.AppConfig, *zap.Logger, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
