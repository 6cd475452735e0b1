package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/catalog"
	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
	"github.com/phelbig/tcgdata/internal/prices"
)

var (
	flagPricesSkipExisting bool
	flagPricesMax          int
)

func newPricesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Update EUR card prices",
		Long: `Fetches EUR prices for every card in the database, from Cardmarket
where a product URL is known and from the Limitless card page
otherwise. Progress is saved every 100 cards, and existing prices are
never overwritten with empty results.`,
		RunE: runPrices,
	}

	cmd.Flags().BoolVar(&flagPricesSkipExisting, "skip-existing", false, "Skip cards that already have a price")
	cmd.Flags().IntVar(&flagPricesMax, "max-cards", 0, "Stop after this many cards (0 = all)")

	return cmd
}

func runPrices(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	dir, err := dataDir()
	if err != nil {
		return err
	}

	cards, err := catalog.LoadDatabase(filepath.Join(dir, "all_cards_database.csv"))
	if err != nil {
		return fmt.Errorf("loading card database: %w", err)
	}
	if len(cards) == 0 {
		return fmt.Errorf("card database is empty, run 'tcgdata cards' first")
	}
	if flagPricesMax > 0 && len(cards) > flagPricesMax {
		cards = cards[:flagPricesMax]
	}

	pricesPath := filepath.Join(dir, "price_data.csv")
	existing, err := prices.Load(pricesPath)
	if err != nil {
		return fmt.Errorf("loading price data: %w", err)
	}

	scraper := prices.New(
		newClient(),
		newClient(fetch.WithCloudflareBypass()),
	)

	results := scraper.Scrape(cmd.Context(), cards, existing, prices.ScrapeOptions{
		SkipExisting: flagPricesSkipExisting,
		SaveEvery:    100,
		OnProgress: func(results []prices.Price) {
			if err := prices.Save(pricesPath, results); err != nil {
				logger.Error("progress save failed", nil, err)
			}
		},
	})

	priced := 0
	for _, p := range results {
		if p.EurPrice != "" {
			priced++
		}
	}

	if len(results) > 0 {
		if err := prices.Save(pricesPath, results); err != nil {
			return fmt.Errorf("saving price data: %w", err)
		}
	}

	result := &OutputResult{
		Command:   "prices",
		CheckedAt: time.Now().UTC(),
		NewItems:  priced,
		Counts: map[string]int{
			"cards_checked": len(results),
			"prices_found":  priced,
		},
	}
	if len(results) > 0 {
		result.Files = []string{pricesPath}
	}

	if err := WriteOutput(os.Stdout, result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if priced > 0 {
		os.Exit(ExitNewData)
	}
	return nil
}
