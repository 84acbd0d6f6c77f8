package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tagforge/internal/logging"
	"github.com/fyrsmithlabs/tagforge/internal/patterns"
)

// suggestMinFrequency is the recurrence threshold for pattern suggestion.
var suggestMinFrequency int

// patternsCmd groups pattern library operations
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and test the tag pattern library",
}

// patternsListCmd lists the loaded patterns
var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded tag and document patterns",
	RunE:  runPatternsList,
}

// patternsCoverageCmd tests pattern coverage against sample text
var patternsCoverageCmd = &cobra.Command{
	Use:   "coverage [file]",
	Short: "Test pattern coverage against sample text",
	Long: `Match every loaded pattern against a sample text and report which
patterns hit and how often.

Examples:
  # Coverage over a tag list
  tagforge patterns coverage tags.txt

  # Coverage from stdin
  cat document.txt | tagforge patterns coverage -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPatternsCoverage,
}

// patternsSuggestCmd proposes patterns from recurring tag shapes
var patternsSuggestCmd = &cobra.Command{
	Use:   "suggest [file]",
	Short: "Suggest patterns from recurring tag shapes in sample text",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPatternsSuggest,
}

func init() {
	patternsSuggestCmd.Flags().IntVar(&suggestMinFrequency, "min-frequency", 2, "minimum occurrences before a shape is suggested")
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsCoverageCmd)
	patternsCmd.AddCommand(patternsSuggestCmd)
}

// runPatternsList handles the patterns list command
func runPatternsList(cmd *cobra.Command, args []string) error {
	_, logger, registry, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger) //nolint:errcheck

	fmt.Println("Tag patterns:")
	for _, p := range registry.TagPatterns() {
		fmt.Printf("  %-24s %-12s priority=%-3d %s\n", p.Name, p.EquipmentType, p.Priority, p.Pattern)
	}
	fmt.Println("Document patterns:")
	for _, p := range registry.DocumentPatterns() {
		fmt.Printf("  %-24s %-12s priority=%-3d %s\n", p.Name, p.DocumentType, p.Priority, p.Pattern)
	}
	return nil
}

// runPatternsCoverage handles the patterns coverage command
func runPatternsCoverage(cmd *cobra.Command, args []string) error {
	_, logger, registry, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger) //nolint:errcheck

	content, err := readInput(args)
	if err != nil {
		return err
	}

	cov := patterns.NewValidator(registry).TestCoverage(string(content))

	for _, m := range cov.TagMatches {
		fmt.Printf("%-24s %-12s %3d match(es): %s\n", m.Name, m.Kind, len(m.Matches), strings.Join(m.Matches, ", "))
	}
	for _, m := range cov.DocumentMatches {
		fmt.Printf("%-24s %-12s %3d match(es): %s\n", m.Name, m.Kind, len(m.Matches), strings.Join(m.Matches, ", "))
	}
	fmt.Printf("\n%d/%d patterns matched (hit rate %.0f%%), %d tag and %d document matches\n",
		cov.PatternsWithMatches, cov.PatternsTested, cov.HitRate*100,
		cov.TotalTagMatches, cov.TotalDocumentMatches)
	return nil
}

// runPatternsSuggest handles the patterns suggest command
func runPatternsSuggest(cmd *cobra.Command, args []string) error {
	_, logger, registry, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger) //nolint:errcheck

	content, err := readInput(args)
	if err != nil {
		return err
	}

	suggestions := patterns.NewValidator(registry).SuggestPatterns(string(content), suggestMinFrequency)
	if len(suggestions) == 0 {
		fmt.Println("No recurring tag shapes found.")
		return nil
	}

	for _, s := range suggestions {
		fmt.Printf("%-20s %4dx  %s  (e.g. %s)\n",
			s.Structure, s.TotalFrequency, s.Pattern, strings.Join(s.Examples, ", "))
	}
	return nil
}
