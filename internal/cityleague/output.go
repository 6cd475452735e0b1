package cityleague

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/logger"
)

// Result is everything scraped for one tournament.
type Result struct {
	Tournament Tournament
	Decklists  []Decklist
}

var overviewHeader = []string{
	"league_id", "league_name", "league_date", "format",
	"rank", "archetype", "decklist_url", "total_cards", "status",
}

var cardsHeader = []string{
	"league_id", "league_name", "format", "rank", "archetype",
	"card_count", "full_card_name",
}

var statsHeader = []string{
	"archetype", "format", "total_appearances", "average_placement",
	"best_placement", "worst_placement", "tournaments",
}

// createWithExisting opens a CSV writer, optionally re-emitting the rows
// already in the file so successive runs accumulate.
func createWithExisting(path string, header []string, appendMode bool) (*csvutil.Writer, error) {
	var existing []map[string]string
	if appendMode {
		rows, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
		if err != nil {
			return nil, err
		}
		existing = rows
	}

	w, err := csvutil.Create(path, header, csvutil.ExcelOptions())
	if err != nil {
		return nil, err
	}
	for _, row := range existing {
		if err := w.WriteMap(row); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}

// WriteOverview writes one row per decklist across all tournaments. With
// appendMode set, rows from earlier runs are kept ahead of the new ones.
func WriteOverview(path string, results []Result, appendMode bool) error {
	w, err := createWithExisting(path, overviewHeader, appendMode)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, res := range results {
		for _, dl := range res.Decklists {
			err := w.Write([]string{
				res.Tournament.ID,
				res.Tournament.Name,
				res.Tournament.Date,
				FormatLabel,
				strconv.Itoa(dl.Rank),
				dl.Archetype,
				dl.URL,
				strconv.Itoa(len(dl.Cards)),
				dl.Status,
			})
			if err != nil {
				return fmt.Errorf("writing overview row: %w", err)
			}
		}
	}
	return w.Close()
}

// WriteCards writes one row per decklist card across all tournaments. With
// appendMode set, rows from earlier runs are kept ahead of the new ones.
func WriteCards(path string, results []Result, appendMode bool) error {
	w, err := createWithExisting(path, cardsHeader, appendMode)
	if err != nil {
		return err
	}
	defer w.Close()

	rows := 0
	for _, res := range results {
		for _, dl := range res.Decklists {
			for _, c := range dl.Cards {
				err := w.Write([]string{
					res.Tournament.ID,
					res.Tournament.Name,
					FormatLabel,
					strconv.Itoa(dl.Rank),
					dl.Archetype,
					strconv.Itoa(c.Count),
					c.Name,
				})
				if err != nil {
					return fmt.Errorf("writing card row: %w", err)
				}
				rows++
			}
		}
	}
	if rows == 0 {
		logger.Warn("no cards extracted, cards file is empty", nil)
	}
	return w.Close()
}

// ArchetypeStats aggregates placements for one archetype.
type ArchetypeStats struct {
	Archetype      string
	Appearances    int
	AvgPlacement   float64
	BestPlacement  int
	WorstPlacement int
	Tournaments    []string
}

// BuildStats aggregates per-archetype statistics across all tournaments,
// sorted by appearances descending.
func BuildStats(results []Result) []ArchetypeStats {
	type acc struct {
		placements  []int
		tournaments map[string]bool
	}
	byArchetype := make(map[string]*acc)

	for _, res := range results {
		label := fmt.Sprintf("%s (ID: %s)", res.Tournament.Name, res.Tournament.ID)
		for _, dl := range res.Decklists {
			a := byArchetype[dl.Archetype]
			if a == nil {
				a = &acc{tournaments: make(map[string]bool)}
				byArchetype[dl.Archetype] = a
			}
			a.placements = append(a.placements, dl.Rank)
			a.tournaments[label] = true
		}
	}

	stats := make([]ArchetypeStats, 0, len(byArchetype))
	for archetype, a := range byArchetype {
		s := ArchetypeStats{
			Archetype:   archetype,
			Appearances: len(a.placements),
		}
		sum := 0
		s.BestPlacement = a.placements[0]
		s.WorstPlacement = a.placements[0]
		for _, p := range a.placements {
			sum += p
			if p < s.BestPlacement {
				s.BestPlacement = p
			}
			if p > s.WorstPlacement {
				s.WorstPlacement = p
			}
		}
		s.AvgPlacement = float64(sum) / float64(len(a.placements))
		for t := range a.tournaments {
			s.Tournaments = append(s.Tournaments, t)
		}
		sort.Strings(s.Tournaments)
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Appearances != stats[j].Appearances {
			return stats[i].Appearances > stats[j].Appearances
		}
		return stats[i].Archetype < stats[j].Archetype
	})
	return stats
}

// WriteStats writes the deck statistics CSV.
func WriteStats(path string, stats []ArchetypeStats) error {
	w, err := csvutil.Create(path, statsHeader, csvutil.ExcelOptions())
	if err != nil {
		return err
	}
	defer w.Close()

	for _, s := range stats {
		err := w.Write([]string{
			s.Archetype,
			FormatLabel,
			strconv.Itoa(s.Appearances),
			csvutil.FormatDecimal(s.AvgPlacement, 2),
			strconv.Itoa(s.BestPlacement),
			strconv.Itoa(s.WorstPlacement),
			strings.Join(s.Tournaments, "; "),
		})
		if err != nil {
			return fmt.Errorf("writing stats row: %w", err)
		}
	}
	return w.Close()
}
