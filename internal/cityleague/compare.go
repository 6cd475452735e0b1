package cityleague

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/phelbig/tcgdata/internal/csvutil"
)

// Status labels in the comparison CSV. The German labels are part of the
// published file format and are kept as-is.
const (
	StatusNew      = "NEU"
	StatusGone     = "VERSCHWUNDEN"
	StatusExisting = "BESTEHEND"

	TrendImproved = "VERBESSERT"
	TrendWorsened = "VERSCHLECHTERT"
	TrendStable   = "STABIL"
)

// ComparisonRow is one archetype's movement between two runs.
type ComparisonRow struct {
	Archetype          string
	Status             string
	Trend              string
	OldCount           int
	NewCount           int
	CountChange        int
	OldAvgPlacement    float64
	NewAvgPlacement    float64
	AvgPlacementChange float64
	OldBest            int
	NewBest            int
}

var comparisonHeader = []string{
	"archetype", "status", "trend", "old_count", "new_count", "count_change",
	"old_avg_placement", "new_avg_placement", "avg_placement_change",
	"old_best", "new_best",
}

// Compare diffs two stat sets. An archetype absent from the old run is NEU,
// absent from the new run VERSCHWUNDEN. The trend follows average placement
// (lower is better); movement under half a placement counts as stable, and
// NEU and VERSCHWUNDEN rows are always STABIL since there is only one
// observed run to place them in.
func Compare(old, new []ArchetypeStats) []ComparisonRow {
	oldBy := statsByArchetype(old)
	newBy := statsByArchetype(new)

	names := make(map[string]bool)
	for n := range oldBy {
		names[n] = true
	}
	for n := range newBy {
		names[n] = true
	}

	rows := make([]ComparisonRow, 0, len(names))
	for name := range names {
		o := oldBy[name]
		n := newBy[name]

		row := ComparisonRow{
			Archetype:          name,
			OldCount:           o.Appearances,
			NewCount:           n.Appearances,
			CountChange:        n.Appearances - o.Appearances,
			OldAvgPlacement:    o.AvgPlacement,
			NewAvgPlacement:    n.AvgPlacement,
			AvgPlacementChange: n.AvgPlacement - o.AvgPlacement,
			OldBest:            o.BestPlacement,
			NewBest:            n.BestPlacement,
		}

		switch {
		case o.Appearances == 0:
			row.Status = StatusNew
		case n.Appearances == 0:
			row.Status = StatusGone
		default:
			row.Status = StatusExisting
		}

		switch {
		case row.Status != StatusExisting:
			row.Trend = TrendStable
		case row.AvgPlacementChange < 0.5 && row.AvgPlacementChange > -0.5:
			row.Trend = TrendStable
		case row.AvgPlacementChange < 0:
			row.Trend = TrendImproved
		default:
			row.Trend = TrendWorsened
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NewCount != rows[j].NewCount {
			return rows[i].NewCount > rows[j].NewCount
		}
		return rows[i].Archetype < rows[j].Archetype
	})
	return rows
}

func statsByArchetype(stats []ArchetypeStats) map[string]ArchetypeStats {
	m := make(map[string]ArchetypeStats, len(stats))
	for _, s := range stats {
		m[s.Archetype] = s
	}
	return m
}

// LoadStats reads a previously written deck statistics CSV back into
// ArchetypeStats. A missing file is a first run and yields nil.
func LoadStats(path string) ([]ArchetypeStats, error) {
	rows, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
	if err != nil || rows == nil {
		return nil, err
	}

	stats := make([]ArchetypeStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, ArchetypeStats{
			Archetype:      row["archetype"],
			Appearances:    csvutil.ParseInt(row["total_appearances"]),
			AvgPlacement:   csvutil.ParseDecimal(row["average_placement"]),
			BestPlacement:  csvutil.ParseInt(row["best_placement"]),
			WorstPlacement: csvutil.ParseInt(row["worst_placement"]),
		})
	}
	return stats, nil
}

// WriteComparison writes the comparison CSV.
func WriteComparison(path string, rows []ComparisonRow) error {
	w, err := csvutil.Create(path, comparisonHeader, csvutil.ExcelOptions())
	if err != nil {
		return err
	}
	defer w.Close()

	for _, row := range rows {
		err := w.Write([]string{
			row.Archetype,
			row.Status,
			row.Trend,
			strconv.Itoa(row.OldCount),
			strconv.Itoa(row.NewCount),
			strconv.Itoa(row.CountChange),
			csvutil.FormatDecimal(row.OldAvgPlacement, 2),
			csvutil.FormatDecimal(row.NewAvgPlacement, 2),
			csvutil.FormatDecimal(row.AvgPlacementChange, 2),
			strconv.Itoa(row.OldBest),
			strconv.Itoa(row.NewBest),
		})
		if err != nil {
			return fmt.Errorf("writing comparison row: %w", err)
		}
	}
	return w.Close()
}
