package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/catalog"
)

var flagSetsForce bool

func newSetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Update the set list and the set order mapping",
		Long: `Scrapes the set table from limitlesstcg.com. A cheap check of the
newest set decides whether the full table needs scraping; when it
does, the set list CSV and the generated set order mapping are
rewritten.`,
		RunE: runSets,
	}

	cmd.Flags().BoolVar(&flagSetsForce, "force", false, "Rescrape even when the newest set is already known")

	return cmd
}

func runSets(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	dir, err := dataDir()
	if err != nil {
		return err
	}

	csvPath := filepath.Join(dir, "pokemon_sets_list.csv")
	jsPath := filepath.Join(dir, "pokemon_sets_order.js")

	scraper := catalog.New(newClient())
	ctx := cmd.Context()

	existing, err := catalog.LoadSets(csvPath)
	if err != nil {
		return fmt.Errorf("loading stored sets: %w", err)
	}

	result := &OutputResult{
		Command:   "sets",
		CheckedAt: time.Now().UTC(),
		Counts:    map[string]int{"known_sets": len(existing)},
	}

	if len(existing) > 0 && !flagSetsForce {
		newest, err := scraper.NewestSet(ctx)
		if err != nil {
			return fmt.Errorf("checking newest set: %w", err)
		}
		if newest.Code == existing[0].Code {
			result.Notes = append(result.Notes,
				fmt.Sprintf("up to date, newest set is %s (%s)", newest.Code, newest.Name))
			return WriteOutput(os.Stdout, result, format)
		}
		result.Notes = append(result.Notes,
			fmt.Sprintf("new set detected: %s (%s)", newest.Code, newest.Name))
	}

	sets, err := scraper.FetchSets(ctx)
	if err != nil {
		return fmt.Errorf("fetching sets: %w", err)
	}
	if err := catalog.WriteSets(csvPath, sets); err != nil {
		return fmt.Errorf("writing set list: %w", err)
	}
	if err := catalog.WriteSetOrderJS(jsPath, sets); err != nil {
		return fmt.Errorf("writing set order mapping: %w", err)
	}

	result.NewItems = len(sets) - len(existing)
	result.Counts["scraped_sets"] = len(sets)
	result.Files = []string{csvPath, jsPath}

	if err := WriteOutput(os.Stdout, result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if result.NewItems > 0 {
		os.Exit(ExitNewData)
	}
	return nil
}
