package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/labs"
	"github.com/phelbig/tcgdata/internal/state"
)

var (
	flagLabsMax       int
	flagLabsMaxDecks  int
	flagLabsFormats   []string
	flagLabsOnline    bool
	flagLabsOnlineSet string
)

func newLabsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labs",
		Short: "Scrape tournament decklists into the card usage table",
		Long: `Collects complete 60-card decklists from labs.limitlesstcg.com
tournaments and, optionally, from online deck lists on
play.limitlesstcg.com. Aggregates per-archetype card usage and writes
it to one CSV, tagged per source. Already scraped tournaments are
skipped.`,
		RunE: runLabs,
	}

	cmd.Flags().IntVar(&flagLabsMax, "max-tournaments", 150, "New tournaments to process per run")
	cmd.Flags().IntVar(&flagLabsMaxDecks, "max-decks", 128, "Decklists per tournament")
	cmd.Flags().StringSliceVar(&flagLabsFormats, "formats", nil, "Only these formats, e.g. Standard,Standard (JP)")
	cmd.Flags().BoolVar(&flagLabsOnline, "online", false, "Also crawl online deck lists")
	cmd.Flags().StringVar(&flagLabsOnlineSet, "online-set", "", "Set code filter for the online crawl")

	return cmd
}

func runLabs(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	dir, err := dataDir()
	if err != nil {
		return err
	}

	index, err := card.LoadIndex(
		filepath.Join(dir, "all_cards_database.csv"),
		filepath.Join(dir, "japanese_cards_database.csv"),
	)
	if err != nil {
		return fmt.Errorf("loading card index: %w", err)
	}

	seen, err := state.LoadSeen(filepath.Join(dir, "scraped_meta_tournaments.json"))
	if err != nil {
		return fmt.Errorf("loading tournament state: %w", err)
	}

	scraper := labs.New(newClient())
	ctx := cmd.Context()

	tournaments, err := scraper.ListTournaments(ctx, flagLabsMax, seen.Has)
	if err != nil {
		return fmt.Errorf("listing tournaments: %w", err)
	}

	allowed := make(map[string]bool, len(flagLabsFormats))
	for _, f := range flagLabsFormats {
		allowed[f] = true
	}

	var decks []labs.Deck
	processed := 0
	for _, t := range tournaments {
		if err := scraper.FetchInfo(ctx, &t); err != nil {
			continue
		}
		if len(allowed) > 0 && !allowed[t.Format] {
			continue
		}

		standings, err := scraper.FetchStandings(ctx, t, flagLabsMaxDecks)
		if err != nil {
			continue
		}
		for _, st := range standings {
			cards, err := scraper.FetchDecklist(ctx, st.DecklistURL)
			if err != nil {
				continue
			}
			d := labs.Deck{Archetype: st.Archetype, Cards: cards, Source: labs.MetaPlay}
			if d.Complete() {
				decks = append(decks, d)
			}
		}

		seen.Add(t.ID)
		processed++
	}

	var onlineDecks []labs.Deck
	if flagLabsOnline {
		onlineDecks, err = scraper.FetchOnlineDecks(ctx, labs.DefaultOnlineOptions(flagLabsOnlineSet))
		if err != nil {
			return fmt.Errorf("crawling online decks: %w", err)
		}
	}

	usagePath := filepath.Join(dir, "current_meta_card_data.csv")
	files := []string{}

	if len(decks) > 0 {
		rows := labs.Aggregate(decks, index, labs.MetaPlay)
		if err := labs.WriteUsage(usagePath, rows, true); err != nil {
			return fmt.Errorf("writing card usage: %w", err)
		}
		files = append(files, usagePath)
	}
	if len(onlineDecks) > 0 {
		rows := labs.Aggregate(onlineDecks, index, labs.MetaLive)
		if err := labs.WriteUsage(usagePath, rows, true); err != nil {
			return fmt.Errorf("writing card usage: %w", err)
		}
		if len(files) == 0 {
			files = append(files, usagePath)
		}
	}

	if processed > 0 {
		if err := seen.Save(); err != nil {
			return fmt.Errorf("saving tournament state: %w", err)
		}
	}

	result := &OutputResult{
		Command:   "labs",
		CheckedAt: time.Now().UTC(),
		NewItems:  processed,
		Counts: map[string]int{
			"tournament_decks": len(decks),
			"online_decks":     len(onlineDecks),
		},
		Files: files,
	}
	if err := WriteOutput(os.Stdout, result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if processed > 0 {
		os.Exit(ExitNewData)
	}
	return nil
}
