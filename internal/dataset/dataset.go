// Package dataset merges the English and Japanese card databases with the
// price data into the combined files the consumers read, and repairs the
// occasional duplicate rows a partial scrape leaves behind.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/catalog"
	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/logger"
	"github.com/phelbig/tcgdata/internal/prices"
)

// MergedCard is one card in the combined database, with language origin
// and price attached.
type MergedCard struct {
	card.Card
	Language         string `json:"language"`
	EurPrice         string `json:"eur_price,omitempty"`
	PriceLastUpdated string `json:"price_last_updated,omitempty"`
}

// Merged is the combined database document.
type Merged struct {
	Timestamp     time.Time    `json:"timestamp"`
	TotalCards    int          `json:"total_cards"`
	EnglishCount  int          `json:"english_count"`
	JapaneseCount int          `json:"japanese_count"`
	Cards         []MergedCard `json:"cards"`
}

// BuildMerged combines both card databases and joins prices. English rows
// win on the (set, number) key; Japanese rows only fill the gaps and are
// flagged so consumers can tell translations from released cards.
func BuildMerged(english, japanese []card.Card, priceMap map[string]prices.Price, sets []catalog.Set) Merged {
	seen := make(map[string]bool, len(english))
	m := Merged{Timestamp: time.Now()}

	add := func(c card.Card, language string) {
		key := c.Set + "_" + c.Number
		if seen[key] {
			return
		}
		seen[key] = true

		mc := MergedCard{Card: c, Language: language}
		if p, ok := priceMap[key]; ok {
			mc.EurPrice = p.EurPrice
			mc.PriceLastUpdated = p.LastUpdated
			if mc.CardmarketURL == "" {
				mc.CardmarketURL = p.CardmarketURL
			}
		}
		m.Cards = append(m.Cards, mc)
	}

	for _, c := range english {
		add(c, "en")
	}
	englishCount := len(m.Cards)
	for _, c := range japanese {
		add(c, "jp")
	}

	m.EnglishCount = englishCount
	m.JapaneseCount = len(m.Cards) - englishCount
	m.TotalCards = len(m.Cards)

	sortCards(m.Cards, sets)
	return m
}

// sortCards orders by set release (newest first), then numeric card
// number. Sets missing from the order list go last, alphabetically.
func sortCards(cards []MergedCard, sets []catalog.Set) {
	order := make(map[string]int, len(sets))
	for _, s := range sets {
		order[s.Code] = s.Order
	}

	sort.Slice(cards, func(i, j int) bool {
		oi, oj := order[cards[i].Set], order[cards[j].Set]
		if oi != oj {
			return oi > oj
		}
		if cards[i].Set != cards[j].Set {
			return cards[i].Set < cards[j].Set
		}
		return csvutil.ParseInt(cards[i].Number) < csvutil.ParseInt(cards[j].Number)
	})
}

// SaveJSON writes the combined database document.
func SaveJSON(path string, m Merged) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logger.Info("saved merged database", logger.Fields{
		"file":  path,
		"cards": m.TotalCards,
	})
	return nil
}

var mergedHeader = []string{
	"name", "set", "number", "type", "rarity", "image_url",
	"international_prints", "cardmarket_url", "eur_price", "price_last_updated",
}

// SaveCSV writes the combined database as CSV.
func SaveCSV(path string, m Merged) error {
	w, err := csvutil.Create(path, mergedHeader, csvutil.Options{})
	if err != nil {
		return err
	}
	defer w.Close()

	for _, c := range m.Cards {
		err := w.Write([]string{
			c.Name, c.Set, c.Number, c.Type, c.Rarity, c.ImageURL,
			c.InternationalPrints, c.CardmarketURL, c.EurPrice, c.PriceLastUpdated,
		})
		if err != nil {
			return fmt.Errorf("writing merged row: %w", err)
		}
	}
	return w.Close()
}

// FixDuplicates drops repeated (set, number) rows, keeping the row with
// the most filled-in fields. Returns the deduplicated cards and how many
// rows were dropped.
func FixDuplicates(cards []card.Card) ([]card.Card, int) {
	best := make(map[string]int)
	var order []string
	for i, c := range cards {
		key := c.Set + "_" + c.Number
		prev, ok := best[key]
		if !ok {
			best[key] = i
			order = append(order, key)
			continue
		}
		if completeness(c) > completeness(cards[prev]) {
			best[key] = i
		}
	}

	result := make([]card.Card, 0, len(order))
	for _, key := range order {
		result = append(result, cards[best[key]])
	}
	return result, len(cards) - len(result)
}

func completeness(c card.Card) int {
	n := 0
	for _, f := range []string{
		c.Name, c.Type, c.Rarity, c.CardURL, c.ImageURL,
		c.InternationalPrints, c.CardmarketURL,
	} {
		if f != "" {
			n++
		}
	}
	return n
}
