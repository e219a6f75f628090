// Package cmd implements the research command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	noColor   bool
	quiet     bool

	// Loaded by PersistentPreRunE.
	cfg *config.Config

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "research",
	Short: "Multi-analyst research reports from a single topic",
	Long: `research assembles a panel of AI analysts for a topic, lets you review
the panel, interviews an expert on behalf of each analyst with web and
encyclopedic evidence, and synthesizes the interviews into a cited report.

Runs are checkpointed: a run waiting for feedback can be resumed later, from
another process or over the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" || cmd.Name() == "init" {
			return nil
		}
		return initConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion injects build information.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// PrintError reports err on stderr, with the error code when it is a
// domain error.
func PrintError(err error) {
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		fmt.Fprintf(os.Stderr, "Error: %s (%s)\n", domErr.Message, domErr.Code)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .research/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, pretty, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress progress messages")
	rootCmd.PersistentFlags().String("state-backend", "",
		"checkpoint store (memory, sqlite, json, redis)")
	rootCmd.PersistentFlags().String("state-path", "",
		"checkpoint database file or directory")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("state.backend", rootCmd.PersistentFlags().Lookup("state-backend"))
	_ = viper.BindPFlag("state.path", rootCmd.PersistentFlags().Lookup("state-path"))
}

func initConfig() error {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	return nil
}
