package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/meta"
)

var (
	flagMetaFormat   string
	flagMetaRotation string
	flagMetaSet      string
	flagMetaTopDecks int
)

func newMetaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Scrape metagame deck statistics and matchups",
		Long: `Scrapes the deck usage table from play.limitlesstcg.com for a format,
fetches head-to-head matchups for the leading decks, analyzes each
deck's best and worst matchups, and diffs the table against the
previous run.`,
		RunE: runMeta,
	}

	cmd.Flags().StringVar(&flagMetaFormat, "meta-format", "STANDARD", "Game format, e.g. STANDARD or EXPANDED")
	cmd.Flags().StringVar(&flagMetaRotation, "rotation", "", "Rotation filter")
	cmd.Flags().StringVar(&flagMetaSet, "set", "", "Set filter, e.g. the latest set code")
	cmd.Flags().IntVar(&flagMetaTopDecks, "top-decks", 15, "Decks to fetch matchups for")

	return cmd
}

func runMeta(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	dir, err := dataDir()
	if err != nil {
		return err
	}

	scraper := meta.New(newClient())
	ctx := cmd.Context()

	decks, stats, err := scraper.FetchDecks(ctx, flagMetaFormat, flagMetaRotation, flagMetaSet)
	if err != nil {
		return fmt.Errorf("fetching deck statistics: %w", err)
	}

	decksPath := filepath.Join(dir, "limitless_meta_decks.csv")
	matchupsPath := filepath.Join(dir, "limitless_meta_matchups.csv")
	analysisPath := filepath.Join(dir, "limitless_meta_analysis.json")
	comparisonPath := filepath.Join(dir, "limitless_meta_comparison.csv")
	statsPath := filepath.Join(dir, "limitless_meta_stats.json")

	previous, err := meta.LoadDecks(decksPath)
	if err != nil {
		return fmt.Errorf("loading previous statistics: %w", err)
	}

	var matchups []meta.Matchup
	var analyses []meta.Analysis
	for i, deck := range decks {
		if i >= flagMetaTopDecks {
			break
		}
		m, err := scraper.FetchMatchups(ctx, deck, flagMetaFormat, flagMetaRotation, flagMetaSet)
		if err != nil {
			// Matchup pages are missing for fringe decks.
			continue
		}
		matchups = append(matchups, m...)
		analyses = append(analyses, meta.Analyze(deck.Name, m, decks))
	}

	if err := meta.WriteDecks(decksPath, decks); err != nil {
		return fmt.Errorf("writing deck statistics: %w", err)
	}
	if err := meta.SaveStats(statsPath, stats); err != nil {
		return fmt.Errorf("writing meta stats: %w", err)
	}
	files := []string{decksPath, statsPath}

	if len(matchups) > 0 {
		if err := meta.WriteMatchups(matchupsPath, matchups); err != nil {
			return fmt.Errorf("writing matchups: %w", err)
		}
		if err := meta.SaveAnalyses(analysisPath, analyses); err != nil {
			return fmt.Errorf("writing analyses: %w", err)
		}
		files = append(files, matchupsPath, analysisPath)
	}

	newDecks := len(decks)
	if previous != nil {
		comparison := meta.Compare(previous, decks)
		if err := meta.WriteComparison(comparisonPath, comparison); err != nil {
			return fmt.Errorf("writing comparison: %w", err)
		}
		files = append(files, comparisonPath)

		newDecks = 0
		for _, row := range comparison {
			if row.Status == meta.StatusNew {
				newDecks++
			}
		}
	}

	result := &OutputResult{
		Command:   "meta",
		CheckedAt: time.Now().UTC(),
		NewItems:  newDecks,
		Counts: map[string]int{
			"decks":       len(decks),
			"matchups":    len(matchups),
			"tournaments": stats.Tournaments,
		},
		Files: files,
		Table: deckTable(decks),
	}
	if err := WriteOutput(os.Stdout, result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if newDecks > 0 {
		os.Exit(ExitNewData)
	}
	return nil
}

func deckTable(decks []meta.DeckStat) *SummaryTable {
	st := &SummaryTable{
		Title:  "Top decks",
		Header: []string{"Rank", "Deck", "Count", "Share", "Win rate"},
	}
	for i, d := range decks {
		if i >= 10 {
			break
		}
		st.Rows = append(st.Rows, []string{
			strconv.Itoa(d.Rank), d.Name, strconv.Itoa(d.Count), d.Share, d.WinRate,
		})
	}
	return st
}
