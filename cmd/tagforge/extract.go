package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tagforge/internal/extraction"
	"github.com/fyrsmithlabs/tagforge/internal/logging"
)

// extractCmd runs the extraction rules against entities
var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract candidate keys from entity metadata",
	Long: `Extract candidate keys, foreign key references and document references
from entity metadata using the configured extraction rules.

The input is a JSON entity (or an array of entities) with an id, a type,
a fields map, and an optional context map:

  {"id": "eq-1", "type": "equipment", "fields": {"name": "Pump P-101"}}

Examples:
  # Extract from a file
  tagforge extract --config rules.yaml entity.json

  # Extract from stdin
  cat entities.json | tagforge extract --config rules.yaml -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

// runExtract handles the extract command
func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger) //nolint:errcheck

	content, err := readInput(args)
	if err != nil {
		return err
	}

	entities, err := decodeEntities(content)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return fmt.Errorf("no entities to process")
	}

	engine := extraction.NewEngine(&cfg.Extraction, logger, nil)

	results := make([]*extraction.ExtractionResult, 0, len(entities))
	for _, entity := range entities {
		result, err := engine.ExtractKeys(cmd.Context(), entity)
		if err != nil {
			return fmt.Errorf("extraction failed for entity %s: %w", entity.ID, err)
		}
		results = append(results, result)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

// decodeEntities accepts a single entity object or an array of them.
func decodeEntities(content []byte) ([]*extraction.Entity, error) {
	var entities []*extraction.Entity
	if err := json.Unmarshal(content, &entities); err == nil {
		return entities, nil
	}

	var entity extraction.Entity
	if err := json.Unmarshal(content, &entity); err != nil {
		return nil, fmt.Errorf("input is neither an entity nor an entity list: %w", err)
	}
	return []*extraction.Entity{&entity}, nil
}
