package labs

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/logger"
)

// Usage is one aggregated row: how often a card shows up inside one
// archetype's decks.
type Usage struct {
	Meta       string
	Archetype  string
	CardName   string
	Identifier string
	TotalCount int
	MaxCount   int
	DeckCount  int
	TotalDecks int
	Percentage float64
	Set        string
	Number     string
	Type       string
}

var usageHeader = []string{
	"meta", "archetype", "card_name", "card_identifier",
	"total_count", "max_count", "deck_count",
	"total_decks_in_archetype", "percentage_in_archetype",
	"set_code", "set_number", "type",
}

// Aggregate folds decklists into per-archetype card usage. Archetype names
// are normalized so spelling variants of the same deck merge, and the most
// common print of each card wins the set and number columns.
func Aggregate(decks []Deck, idx *card.Index, meta string) []Usage {
	type cardAgg struct {
		total  int
		max    int
		decks  int
		prints map[string]int
	}
	byArchetype := make(map[string]map[string]*cardAgg)
	deckCounts := make(map[string]int)

	for _, deck := range decks {
		if len(deck.Cards) == 0 {
			continue
		}
		archetype := card.FixMegaName(deck.Archetype)
		deckCounts[archetype]++
		cards := byArchetype[archetype]
		if cards == nil {
			cards = make(map[string]*cardAgg)
			byArchetype[archetype] = cards
		}

		seen := make(map[string]bool)
		for _, e := range deck.Cards {
			if e.Name == "" {
				continue
			}
			agg := cards[e.Name]
			if agg == nil {
				agg = &cardAgg{prints: make(map[string]int)}
				cards[e.Name] = agg
			}
			agg.total += e.Count
			if e.Count > agg.max {
				agg.max = e.Count
			}
			if !seen[e.Name] {
				agg.decks++
				seen[e.Name] = true
			}
			if e.Set != "" && e.Number != "" {
				agg.prints[e.Set+" "+e.Number]++
			}
		}
	}

	var rows []Usage
	for archetype, cards := range byArchetype {
		total := deckCounts[archetype]
		for name, agg := range cards {
			u := Usage{
				Meta:       meta,
				Archetype:  archetype,
				CardName:   name,
				TotalCount: agg.total,
				MaxCount:   agg.max,
				DeckCount:  agg.decks,
				TotalDecks: total,
				Percentage: float64(agg.decks) / float64(total) * 100,
			}
			cat, _ := idx.CategoryFor(name)
			u.Type = cat.String()
			u.Set, u.Number = mostCommonPrint(agg.prints)
			if u.Set != "" {
				u.Identifier = u.Set + "_" + u.Number
			}
			rows = append(rows, u)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Archetype != rows[j].Archetype {
			return rows[i].Archetype < rows[j].Archetype
		}
		if rows[i].TotalCount != rows[j].TotalCount {
			return rows[i].TotalCount > rows[j].TotalCount
		}
		return rows[i].CardName < rows[j].CardName
	})
	return rows
}

func mostCommonPrint(prints map[string]int) (set, number string) {
	best := 0
	var key string
	for k, n := range prints {
		if n > best || (n == best && k < key) {
			best, key = n, k
		}
	}
	if key == "" {
		return "", ""
	}
	i := len(key) - 1
	for i > 0 && key[i] != ' ' {
		i--
	}
	return key[:i], key[i+1:]
}

// WriteUsage writes the aggregated usage CSV. With appendMode set, rows
// from previous runs with a different meta label are kept, so the two
// sources can update the file independently.
func WriteUsage(path string, rows []Usage, appendMode bool) error {
	var combined []map[string]string
	if appendMode {
		existing, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
		if err != nil {
			return err
		}
		fresh := make(map[string]bool, len(rows))
		for _, r := range rows {
			fresh[r.Meta] = true
		}
		for _, row := range existing {
			if !fresh[row["meta"]] {
				combined = append(combined, row)
			}
		}
	}

	w, err := csvutil.Create(path, usageHeader, csvutil.ExcelOptions())
	if err != nil {
		return err
	}
	defer w.Close()

	for _, row := range combined {
		if err := w.WriteMap(row); err != nil {
			return err
		}
	}
	for _, r := range rows {
		err := w.Write([]string{
			r.Meta,
			r.Archetype,
			r.CardName,
			r.Identifier,
			strconv.Itoa(r.TotalCount),
			strconv.Itoa(r.MaxCount),
			strconv.Itoa(r.DeckCount),
			strconv.Itoa(r.TotalDecks),
			csvutil.FormatDecimal(r.Percentage, 1),
			r.Set,
			r.Number,
			r.Type,
		})
		if err != nil {
			return fmt.Errorf("writing usage row: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	logger.Info("saved card usage", logger.Fields{
		"file": path,
		"rows": len(combined) + len(rows),
	})
	return nil
}
