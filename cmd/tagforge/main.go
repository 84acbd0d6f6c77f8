// Package main implements the tagforge CLI for extracting candidate keys
// from entity metadata and generating search aliases for industrial tags.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
	"github.com/fyrsmithlabs/tagforge/internal/logging"
	"github.com/fyrsmithlabs/tagforge/internal/patterns"
)

var (
	// configPath is the YAML configuration file; empty uses defaults
	// plus TAGFORGE_ environment overrides.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tagforge",
	Short: "Rule-driven tag extraction and alias generation",
	Long: `tagforge extracts candidate keys, foreign key references and document
references from entity metadata, and expands industrial tags into the
alias variants search systems need to find them.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (YAML)")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(patternsCmd)
}

// setup loads the configuration, builds the logger, and loads the
// pattern registry. Every subcommand starts here.
func setup() (*config.Config, *zap.Logger, *patterns.Registry, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	registry := patterns.Load(cfg.Patterns.Path, logger)
	return cfg, logger, registry, nil
}

// readInput reads the positional file argument, treating a missing
// argument or "-" as stdin.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}
