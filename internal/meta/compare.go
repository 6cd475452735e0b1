package meta

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/phelbig/tcgdata/internal/csvutil"
)

// Status and trend labels in the comparison CSV. The German labels are part
// of the published file format and are kept as-is.
const (
	StatusNew      = "NEU"
	StatusGone     = "VERSCHWUNDEN"
	StatusExisting = "BESTEHEND"

	TrendRising  = "AUFSTEIGEND"
	TrendFalling = "ABSTEIGEND"
	TrendStable  = "STABIL"
)

// unranked marks a deck absent from one of the two runs.
const unranked = 999

// ComparisonRow is one deck's movement between two runs.
type ComparisonRow struct {
	Name          string
	Status        string
	Trend         string
	OldRank       int
	NewRank       int
	RankChange    int
	OldCount      int
	NewCount      int
	CountChange   int
	OldShare      float64
	NewShare      float64
	ShareChange   float64
	OldWinRate    float64
	NewWinRate    float64
	WinRateChange float64
}

var comparisonHeader = []string{
	"deck_name", "status", "trend",
	"old_rank", "new_rank", "rank_change",
	"old_count", "new_count", "count_change",
	"old_share", "new_share", "share_change",
	"old_winrate", "new_winrate", "winrate_change",
}

// Compare diffs two usage tables. Decks absent from a run carry the
// unranked sentinel so newcomers always sort as risers.
func Compare(old, new []DeckStat) []ComparisonRow {
	oldBy := decksByName(old)
	newBy := decksByName(new)

	names := make(map[string]bool)
	for n := range oldBy {
		names[n] = true
	}
	for n := range newBy {
		names[n] = true
	}

	rows := make([]ComparisonRow, 0, len(names))
	for name := range names {
		o, hasOld := oldBy[name]
		n, hasNew := newBy[name]

		row := ComparisonRow{
			Name:          name,
			OldRank:       unranked,
			NewRank:       unranked,
			OldCount:      o.Count,
			NewCount:      n.Count,
			CountChange:   n.Count - o.Count,
			OldShare:      o.ShareN,
			NewShare:      n.ShareN,
			ShareChange:   n.ShareN - o.ShareN,
			OldWinRate:    o.RateN,
			NewWinRate:    n.RateN,
			WinRateChange: n.RateN - o.RateN,
		}
		if hasOld {
			row.OldRank = o.Rank
		}
		if hasNew {
			row.NewRank = n.Rank
		}
		// A rank delta only means something when the deck appears in both
		// runs; against a sentinel it would be published as a huge jump.
		if hasOld && hasNew {
			row.RankChange = row.OldRank - row.NewRank
		}

		switch {
		case !hasOld:
			row.Status = StatusNew
		case !hasNew:
			row.Status = StatusGone
		default:
			row.Status = StatusExisting
		}

		switch {
		case row.OldRank > row.NewRank:
			row.Trend = TrendRising
		case row.OldRank < row.NewRank:
			row.Trend = TrendFalling
		default:
			row.Trend = TrendStable
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NewRank != rows[j].NewRank {
			return rows[i].NewRank < rows[j].NewRank
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func decksByName(decks []DeckStat) map[string]DeckStat {
	m := make(map[string]DeckStat, len(decks))
	for _, d := range decks {
		m[d.Name] = d
	}
	return m
}

// WriteComparison writes the comparison CSV. Sentinel ranks render as "-".
func WriteComparison(path string, rows []ComparisonRow) error {
	w, err := csvutil.Create(path, comparisonHeader, csvutil.ExcelOptions())
	if err != nil {
		return err
	}
	defer w.Close()

	for _, row := range rows {
		err := w.Write([]string{
			row.Name,
			row.Status,
			row.Trend,
			formatRank(row.OldRank),
			formatRank(row.NewRank),
			strconv.Itoa(row.RankChange),
			strconv.Itoa(row.OldCount),
			strconv.Itoa(row.NewCount),
			strconv.Itoa(row.CountChange),
			csvutil.FormatDecimal(row.OldShare, 2),
			csvutil.FormatDecimal(row.NewShare, 2),
			csvutil.FormatDecimal(row.ShareChange, 2),
			csvutil.FormatDecimal(row.OldWinRate, 2),
			csvutil.FormatDecimal(row.NewWinRate, 2),
			csvutil.FormatDecimal(row.WinRateChange, 2),
		})
		if err != nil {
			return fmt.Errorf("writing comparison row: %w", err)
		}
	}
	return w.Close()
}

func formatRank(rank int) string {
	if rank == unranked {
		return "-"
	}
	return strconv.Itoa(rank)
}
