// Package cli implements the ragagent command line.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ragagent/internal/app"
	"ragagent/internal/config"
	"ragagent/internal/logging"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "ragagent",
	Short: "RAG agent - document search with a tool-calling assistant",
	Long: `ragagent indexes text and PDF documents for semantic search and answers
questions with a language model that can call a calculator, web search,
a mock email sender and document retrieval.

Configuration is read from --config, ./config.yaml or
~/.config/ragagent/config.yaml, in that order.`,
	SilenceUsage: true,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file")

	// Add subcommands
	rootCmd.AddCommand(indexCmd, searchCmd, askCmd, calcCmd, tuiCmd, serveCmd)
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// setup loads the config and wires the application. Logs go to logOut
// unless the config names a log file. The returned func releases the log.
func setup(logOut io.Writer) (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, closeLog, err := logging.Open(cfg.Log, logOut)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return a, func() { _ = closeLog() }, nil
}
