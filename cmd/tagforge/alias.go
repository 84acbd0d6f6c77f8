package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tagforge/internal/aliasing"
	"github.com/fyrsmithlabs/tagforge/internal/logging"
)

var (
	// aliasEntityType is the entity type scope filters match against.
	aliasEntityType string
	// aliasContext holds key=value enrichment pairs.
	aliasContext []string
)

// aliasCmd expands tags into alias variants
var aliasCmd = &cobra.Command{
	Use:   "alias <tag> [tag...]",
	Short: "Generate search aliases for tags",
	Long: `Generate alias variants for one or more tags using the configured
aliasing rules.

Examples:
  # Expand a tag
  tagforge alias --config rules.yaml P-101

  # Expand with enrichment context
  tagforge alias --config rules.yaml --entity-type equipment \
    --context equipment_type=pump --context site=Plant_A P-101`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAlias,
}

func init() {
	aliasCmd.Flags().StringVar(&aliasEntityType, "entity-type", "", "entity type for scope filters")
	aliasCmd.Flags().StringArrayVar(&aliasContext, "context", nil, "context value as key=value (repeatable)")
}

// runAlias handles the alias command
func runAlias(cmd *cobra.Command, args []string) error {
	cfg, logger, registry, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger) //nolint:errcheck

	values, err := parseContext(aliasContext)
	if err != nil {
		return err
	}

	transformers := aliasing.NewTransformers(logger, registry)
	engine, err := aliasing.NewEngine(&cfg.Aliasing, transformers, logger)
	if err != nil {
		return fmt.Errorf("failed to build aliasing engine: %w", err)
	}

	results := make([]*aliasing.Result, 0, len(args))
	for _, tag := range args {
		// Each tag gets its own context so recognized values from one
		// tag never leak into the next.
		tctx := aliasing.NewContext(aliasEntityType, values)
		results = append(results, engine.Expand(tag, tctx))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

// parseContext splits key=value flags into a map.
func parseContext(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context value %q, want key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}
