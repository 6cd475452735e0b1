package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/cityleague"
	"github.com/phelbig/tcgdata/internal/state"
)

var (
	flagCLStartDate string
	flagCLEndDate   string
	flagCLMax       int
	flagCLDecklists int
)

func newCityLeagueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cityleague",
		Short: "Scrape Japanese City League tournament results",
		Long: `Scrapes City League tournaments from limitlesstcg.com, collecting
per-tournament standings with archetypes and full decklists. Already
scraped tournaments are skipped. Appends to the overview and cards CSVs
and rebuilds the deck statistics and the comparison against the
previous statistics.`,
		RunE: runCityLeague,
	}

	cmd.Flags().StringVar(&flagCLStartDate, "start-date", "", "Earliest tournament date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&flagCLEndDate, "end-date", "", "Latest tournament date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().IntVar(&flagCLMax, "max-tournaments", 0, "Stop after this many new tournaments (0 = all)")
	cmd.Flags().IntVar(&flagCLDecklists, "max-decklists", 0, "Decklists per tournament (0 = all)")

	cmd.MarkFlagRequired("start-date")

	return cmd
}

func runCityLeague(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	dir, err := dataDir()
	if err != nil {
		return err
	}

	start, err := time.Parse("2006-01-02", flagCLStartDate)
	if err != nil {
		return fmt.Errorf("invalid --start-date: %w", err)
	}
	end := time.Now()
	if flagCLEndDate != "" {
		if end, err = time.Parse("2006-01-02", flagCLEndDate); err != nil {
			return fmt.Errorf("invalid --end-date: %w", err)
		}
	}

	index, err := card.LoadIndex(
		filepath.Join(dir, "all_cards_database.csv"),
		filepath.Join(dir, "japanese_cards_database.csv"),
	)
	if err != nil {
		return fmt.Errorf("loading card index: %w", err)
	}

	seen, err := state.LoadSeen(filepath.Join(dir, "scraped_tournaments.json"))
	if err != nil {
		return fmt.Errorf("loading tournament state: %w", err)
	}

	client := newClient()
	scraper := cityleague.New(client, index, card.NewLookup(client))

	ctx := cmd.Context()
	tournaments, err := scraper.ListTournaments(ctx, start, end)
	if err != nil {
		return fmt.Errorf("listing tournaments: %w", err)
	}

	overviewPath := filepath.Join(dir, "city_league_overview.csv")
	cardsPath := filepath.Join(dir, "city_league_cards.csv")
	statsPath := filepath.Join(dir, "city_league_deck_stats.csv")
	comparisonPath := filepath.Join(dir, "city_league_comparison.csv")

	var results []cityleague.Result
	for _, t := range tournaments {
		if seen.Has(t.ID) {
			continue
		}
		if flagCLMax > 0 && len(results) >= flagCLMax {
			break
		}

		if err := scraper.FetchInfo(ctx, &t); err != nil {
			// One broken tournament page should not end the run.
			continue
		}
		decklists, err := scraper.ScrapeTournament(ctx, t, flagCLDecklists)
		if err != nil {
			continue
		}

		results = append(results, cityleague.Result{Tournament: t, Decklists: decklists})
		seen.Add(t.ID)
	}

	result := &OutputResult{
		Command:   "cityleague",
		CheckedAt: time.Now().UTC(),
		NewItems:  len(results),
		Counts:    map[string]int{"tournaments_listed": len(tournaments)},
	}

	if len(results) > 0 {
		oldStats, err := cityleague.LoadStats(statsPath)
		if err != nil {
			return fmt.Errorf("loading previous statistics: %w", err)
		}

		if err := cityleague.WriteOverview(overviewPath, results, true); err != nil {
			return fmt.Errorf("writing overview: %w", err)
		}
		if err := cityleague.WriteCards(cardsPath, results, true); err != nil {
			return fmt.Errorf("writing cards: %w", err)
		}
		if _, err := cityleague.CleanCardNames(cardsPath, index); err != nil {
			return fmt.Errorf("cleaning card names: %w", err)
		}

		stats := cityleague.BuildStats(results)
		if err := cityleague.WriteStats(statsPath, stats); err != nil {
			return fmt.Errorf("writing statistics: %w", err)
		}
		if oldStats != nil {
			comparison := cityleague.Compare(oldStats, stats)
			if err := cityleague.WriteComparison(comparisonPath, comparison); err != nil {
				return fmt.Errorf("writing comparison: %w", err)
			}
			result.Files = append(result.Files, comparisonPath)
		}

		if err := seen.Save(); err != nil {
			return fmt.Errorf("saving tournament state: %w", err)
		}

		result.Files = append(result.Files, overviewPath, cardsPath, statsPath)
		result.Table = statsTable(stats)
	}

	if err := WriteOutput(os.Stdout, result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if len(results) > 0 {
		os.Exit(ExitNewData)
	}
	return nil
}

func statsTable(stats []cityleague.ArchetypeStats) *SummaryTable {
	st := &SummaryTable{
		Title:  "Top archetypes",
		Header: []string{"Archetype", "Entries", "Avg placement", "Best"},
	}
	for i, s := range stats {
		if i >= 10 {
			break
		}
		st.Rows = append(st.Rows, []string{
			s.Archetype,
			strconv.Itoa(s.Appearances),
			fmt.Sprintf("%.2f", s.AvgPlacement),
			strconv.Itoa(s.BestPlacement),
		})
	}
	return st
}
