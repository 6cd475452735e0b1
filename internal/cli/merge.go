package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/catalog"
	"github.com/phelbig/tcgdata/internal/dataset"
	"github.com/phelbig/tcgdata/internal/prices"
)

var flagMergeFixDuplicates bool

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Build the combined card database",
		Long: `Merges the English and Japanese card databases with the price data
into the combined JSON and CSV files. English cards win on the
(set, number) key; Japanese-only cards are flagged by language. Cards
are ordered by set release, newest first.`,
		RunE: runMerge,
	}

	cmd.Flags().BoolVar(&flagMergeFixDuplicates, "fix-duplicates", false, "Repair duplicate rows in the source databases first")

	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	dir, err := dataDir()
	if err != nil {
		return err
	}

	englishPath := filepath.Join(dir, "all_cards_database.csv")
	japanesePath := filepath.Join(dir, "japanese_cards_database.csv")

	english, err := catalog.LoadDatabase(englishPath)
	if err != nil {
		return fmt.Errorf("loading English database: %w", err)
	}
	japanese, err := catalog.LoadDatabase(japanesePath)
	if err != nil {
		return fmt.Errorf("loading Japanese database: %w", err)
	}
	if len(english) == 0 && len(japanese) == 0 {
		return fmt.Errorf("no card databases found, run 'tcgdata cards' first")
	}

	dropped := 0
	if flagMergeFixDuplicates {
		var d int
		english, d = dataset.FixDuplicates(english)
		dropped += d
		japanese, d = dataset.FixDuplicates(japanese)
		dropped += d
		if dropped > 0 {
			if err := catalog.WriteDatabase(englishPath, english); err != nil {
				return fmt.Errorf("rewriting English database: %w", err)
			}
			if err := catalog.WriteDatabase(japanesePath, japanese); err != nil {
				return fmt.Errorf("rewriting Japanese database: %w", err)
			}
		}
	}

	priceMap, err := prices.Load(filepath.Join(dir, "price_data.csv"))
	if err != nil {
		return fmt.Errorf("loading price data: %w", err)
	}
	sets, err := catalog.LoadSets(filepath.Join(dir, "pokemon_sets_list.csv"))
	if err != nil {
		return fmt.Errorf("loading set list: %w", err)
	}

	merged := dataset.BuildMerged(english, japanese, priceMap, sets)

	jsonPath := filepath.Join(dir, "all_cards_merged.json")
	csvPath := filepath.Join(dir, "all_cards_merged.csv")
	if err := dataset.SaveJSON(jsonPath, merged); err != nil {
		return fmt.Errorf("saving merged JSON: %w", err)
	}
	if err := dataset.SaveCSV(csvPath, merged); err != nil {
		return fmt.Errorf("saving merged CSV: %w", err)
	}

	result := &OutputResult{
		Command:   "merge",
		CheckedAt: time.Now().UTC(),
		NewItems:  merged.TotalCards,
		Counts: map[string]int{
			"english":            merged.EnglishCount,
			"japanese":           merged.JapaneseCount,
			"duplicates_dropped": dropped,
		},
		Files: []string{jsonPath, csvPath},
	}
	return WriteOutput(os.Stdout, result, format)
}
