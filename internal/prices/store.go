package prices

import (
	"fmt"
	"sort"

	"github.com/phelbig/tcgdata/internal/csvutil"
)

var pricesHeader = []string{
	"name", "set", "number", "eur_price", "cardmarket_url", "last_updated",
}

// Load reads the price CSV keyed by set_number. A missing file yields an
// empty map.
func Load(path string) (map[string]Price, error) {
	rows, err := csvutil.ReadAll(path, csvutil.Options{})
	if err != nil {
		return nil, err
	}

	prices := make(map[string]Price, len(rows))
	for _, row := range rows {
		p := Price{
			Name:          row["name"],
			Set:           row["set"],
			Number:        row["number"],
			EurPrice:      row["eur_price"],
			CardmarketURL: row["cardmarket_url"],
			LastUpdated:   row["last_updated"],
		}
		prices[p.Key()] = p
	}
	return prices, nil
}

// Save merges the results into the stored CSV. A fresh non-empty price
// replaces the stored record; an empty one never clobbers an existing
// price and only registers cards not seen before.
func Save(path string, results []Price) error {
	merged, err := Load(path)
	if err != nil {
		return err
	}

	for _, p := range results {
		key := p.Key()
		if p.EurPrice != "" {
			merged[key] = p
		} else if _, ok := merged[key]; !ok {
			merged[key] = p
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w, err := csvutil.Create(path, pricesHeader, csvutil.Options{})
	if err != nil {
		return err
	}
	defer w.Close()

	for _, k := range keys {
		p := merged[k]
		err := w.Write([]string{
			p.Name, p.Set, p.Number, p.EurPrice, p.CardmarketURL, p.LastUpdated,
		})
		if err != nil {
			return fmt.Errorf("writing price row: %w", err)
		}
	}
	return w.Close()
}
