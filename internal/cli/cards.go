package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/catalog"
	"github.com/phelbig/tcgdata/internal/state"
)

var (
	flagCardsJapanese   bool
	flagCardsStartPage  int
	flagCardsEndPage    int
	flagCardsSets       []string
	flagCardsLatestSets int
)

func newCardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Update the card database from the card list",
		Long: `Walks the paginated card list on limitlesstcg.com and merges new
cards into the card database CSV. English runs track scraped pages and
skip them next time; Japanese runs keep only the most recent sets and
rewrite their database.`,
		RunE: runCards,
	}

	cmd.Flags().BoolVar(&flagCardsJapanese, "japanese", false, "Scrape the Japanese (translated) card list")
	cmd.Flags().IntVar(&flagCardsStartPage, "start-page", 1, "First list page to scrape")
	cmd.Flags().IntVar(&flagCardsEndPage, "end-page", 0, "Last list page to scrape (0 = until the end)")
	cmd.Flags().StringSliceVar(&flagCardsSets, "sets", nil, "Only cards from these set codes")
	cmd.Flags().IntVar(&flagCardsLatestSets, "latest-sets", 4, "Japanese sets to keep")

	return cmd
}

func runCards(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	dir, err := dataDir()
	if err != nil {
		return err
	}

	scraper := catalog.New(newClient())
	if flagCardsJapanese {
		return runJapaneseCards(cmd, scraper, dir, format)
	}
	return runEnglishCards(cmd, scraper, dir, format)
}

func runEnglishCards(cmd *cobra.Command, scraper *catalog.Scraper, dir string, format OutputFormat) error {
	dbPath := filepath.Join(dir, "all_cards_database.csv")

	existing, err := catalog.LoadDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("loading card database: %w", err)
	}
	pages, err := state.LoadSeen(filepath.Join(dir, "scraped_pages.json"))
	if err != nil {
		return fmt.Errorf("loading page state: %w", err)
	}

	setFilter := make(map[string]bool, len(flagCardsSets))
	for _, s := range flagCardsSets {
		setFilter[s] = true
	}

	scraped, err := scraper.FetchCardList(cmd.Context(), catalog.ListOptions{
		Query:     catalog.EnglishQuery,
		StartPage: flagCardsStartPage,
		EndPage:   flagCardsEndPage,
		SetFilter: setFilter,
		Pages:     pages,
		Existing:  catalog.Keys(existing),
	})
	if err != nil {
		return fmt.Errorf("fetching card list: %w", err)
	}

	merged, added := catalog.MergeDatabase(existing, scraped)
	if added > 0 {
		if err := catalog.WriteDatabase(dbPath, merged); err != nil {
			return fmt.Errorf("writing card database: %w", err)
		}
	}
	if err := pages.Save(); err != nil {
		return fmt.Errorf("saving page state: %w", err)
	}

	result := &OutputResult{
		Command:   "cards",
		CheckedAt: time.Now().UTC(),
		NewItems:  added,
		Counts: map[string]int{
			"database_cards": len(merged),
			"scraped_cards":  len(scraped),
		},
	}
	if added > 0 {
		result.Files = []string{dbPath}
	}

	if err := WriteOutput(os.Stdout, result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if added > 0 {
		os.Exit(ExitNewData)
	}
	return nil
}

func runJapaneseCards(cmd *cobra.Command, scraper *catalog.Scraper, dir string, format OutputFormat) error {
	dbPath := filepath.Join(dir, "japanese_cards_database.csv")
	ctx := cmd.Context()

	existing, err := catalog.LoadDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("loading card database: %w", err)
	}

	// Cheap check: when the stored sets already are the latest ones, the
	// full crawl can be skipped.
	latest, err := scraper.LatestSets(ctx, catalog.JapaneseQuery, flagCardsLatestSets)
	if err == nil && len(latest) > 0 && sameSets(existing, latest) {
		result := &OutputResult{
			Command:   "cards",
			CheckedAt: time.Now().UTC(),
			Counts:    map[string]int{"database_cards": len(existing)},
			Notes:     []string{"up to date, latest Japanese sets already stored"},
		}
		return WriteOutput(os.Stdout, result, format)
	}

	scraped, err := scraper.FetchCardList(ctx, catalog.ListOptions{
		Query:     catalog.JapaneseQuery,
		StartPage: flagCardsStartPage,
		EndPage:   flagCardsEndPage,
	})
	if err != nil {
		return fmt.Errorf("fetching card list: %w", err)
	}

	filtered, sets := catalog.FilterLatestSets(scraped, flagCardsLatestSets)
	if err := catalog.WriteDatabase(dbPath, filtered); err != nil {
		return fmt.Errorf("writing card database: %w", err)
	}

	result := &OutputResult{
		Command:   "cards",
		CheckedAt: time.Now().UTC(),
		NewItems:  len(filtered),
		Counts:    map[string]int{"database_cards": len(filtered)},
		Notes:     []string{fmt.Sprintf("kept sets: %v", sets)},
		Files:     []string{dbPath},
	}
	if err := WriteOutput(os.Stdout, result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if len(filtered) > 0 {
		os.Exit(ExitNewData)
	}
	return nil
}

// sameSets reports whether the stored cards cover exactly the given sets.
func sameSets(existing []card.Card, latest []string) bool {
	stored := make(map[string]bool)
	for _, c := range existing {
		stored[c.Set] = true
	}
	if len(stored) != len(latest) {
		return false
	}
	for _, code := range latest {
		if !stored[code] {
			return false
		}
	}
	return true
}
