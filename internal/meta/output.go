package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/logger"
)

var decksHeader = []string{
	"rank", "deck_name", "count", "share", "share_numeric",
	"wins", "losses", "ties", "win_rate", "win_rate_numeric",
}

var matchupsHeader = []string{
	"deck_name", "opponent", "win_rate", "record", "total_games",
}

// WriteDecks writes the usage table CSV.
func WriteDecks(path string, decks []DeckStat) error {
	w, err := csvutil.Create(path, decksHeader, csvutil.ExcelOptions())
	if err != nil {
		return err
	}
	defer w.Close()

	for _, d := range decks {
		err := w.Write([]string{
			strconv.Itoa(d.Rank),
			d.Name,
			strconv.Itoa(d.Count),
			d.Share,
			csvutil.FormatDecimal(d.ShareN, 2),
			strconv.Itoa(d.Wins),
			strconv.Itoa(d.Losses),
			strconv.Itoa(d.Ties),
			d.WinRate,
			csvutil.FormatDecimal(d.RateN, 2),
		})
		if err != nil {
			return fmt.Errorf("writing deck row: %w", err)
		}
	}
	return w.Close()
}

// LoadDecks reads a previously written usage CSV. A missing file yields nil.
func LoadDecks(path string) ([]DeckStat, error) {
	rows, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
	if err != nil || rows == nil {
		return nil, err
	}

	decks := make([]DeckStat, 0, len(rows))
	for _, row := range rows {
		decks = append(decks, DeckStat{
			Rank:    csvutil.ParseInt(row["rank"]),
			Name:    row["deck_name"],
			Count:   csvutil.ParseInt(row["count"]),
			Share:   row["share"],
			ShareN:  csvutil.ParseDecimal(row["share_numeric"]),
			Wins:    csvutil.ParseInt(row["wins"]),
			Losses:  csvutil.ParseInt(row["losses"]),
			Ties:    csvutil.ParseInt(row["ties"]),
			WinRate: row["win_rate"],
			RateN:   csvutil.ParseDecimal(row["win_rate_numeric"]),
		})
	}
	return decks, nil
}

// WriteMatchups writes all collected matchup rows into one CSV.
func WriteMatchups(path string, matchups []Matchup) error {
	w, err := csvutil.Create(path, matchupsHeader, csvutil.ExcelOptions())
	if err != nil {
		return err
	}
	defer w.Close()

	for _, m := range matchups {
		err := w.Write([]string{
			m.Deck,
			m.Opponent,
			csvutil.FormatDecimal(m.WinRate, 2),
			m.Record,
			strconv.Itoa(m.TotalGames),
		})
		if err != nil {
			return fmt.Errorf("writing matchup row: %w", err)
		}
	}
	return w.Close()
}

// statsFile wraps Stats with the capture timestamp for the JSON sidecar.
type statsFile struct {
	Stats
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveStats writes the tournament sample summary next to the CSVs.
func SaveStats(path string, stats Stats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(statsFile{Stats: stats, UpdatedAt: time.Now()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Analysis holds a deck's strongest and weakest matchups against the
// current top decks.
type Analysis struct {
	Deck     string    `json:"deck_name"`
	Best     []Matchup `json:"best_matchups"`
	Worst    []Matchup `json:"worst_matchups"`
	Positive int       `json:"positive_matchups"`
	Negative int       `json:"negative_matchups"`
}

// minMatchupGames is the sample size below which a matchup says nothing.
const minMatchupGames = 3

// Analyze reduces a deck's matchups to the five best and worst against the
// top decks of the format. Matchups with fewer than three games and the
// catch-all "Other" bucket are ignored.
func Analyze(deck string, matchups []Matchup, topDecks []DeckStat) Analysis {
	top := make(map[string]bool, len(topDecks))
	for i, d := range topDecks {
		if i >= 20 {
			break
		}
		top[strings.ToLower(d.Name)] = true
	}

	var relevant []Matchup
	for _, m := range matchups {
		if m.TotalGames < minMatchupGames || m.Opponent == "Other" {
			continue
		}
		if !top[strings.ToLower(m.Opponent)] {
			continue
		}
		relevant = append(relevant, m)
	}
	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].WinRate > relevant[j].WinRate
	})

	a := Analysis{Deck: deck}
	for _, m := range relevant {
		if m.WinRate > 50 {
			a.Positive++
			if len(a.Best) < 5 {
				a.Best = append(a.Best, m)
			}
		} else if m.WinRate < 50 {
			a.Negative++
		}
	}
	for i := len(relevant) - 1; i >= 0; i-- {
		if relevant[i].WinRate < 50 && len(a.Worst) < 5 {
			a.Worst = append(a.Worst, relevant[i])
		}
	}
	return a
}

// SaveAnalyses writes the matchup analyses as a JSON document.
func SaveAnalyses(path string, analyses []Analysis) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(analyses, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logger.Info("saved matchup analyses", logger.Fields{
		"file":  path,
		"decks": len(analyses),
	})
	return nil
}
