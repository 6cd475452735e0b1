package cityleague

import (
	"path/filepath"
	"testing"

	"github.com/phelbig/tcgdata/internal/csvutil"
)

func sampleResults() []Result {
	return []Result{
		{
			Tournament: Tournament{ID: "10232", Name: "City League Osaka", Date: "25 Jan 26"},
			Decklists: []Decklist{
				{
					DecklistRef: DecklistRef{Rank: 1, URL: "https://limitlesstcg.com/decks/list/jp/90001", Archetype: "Gardevoir ex"},
					Cards: []DeckCard{
						{Count: 2, Name: "Ralts SVI 84"},
						{Count: 4, Name: "Ultra Ball"},
					},
					Status: "success",
				},
				{
					DecklistRef: DecklistRef{Rank: 2, URL: "https://limitlesstcg.com/decks/list/jp/90002", Archetype: "Charizard ex"},
					Status:      "no cards found",
				},
			},
		},
		{
			Tournament: Tournament{ID: "10233", Name: "City League Nagoya", Date: "2 Feb 26"},
			Decklists: []Decklist{
				{
					DecklistRef: DecklistRef{Rank: 3, URL: "https://limitlesstcg.com/decks/list/jp/90003", Archetype: "Gardevoir ex"},
					Cards:       []DeckCard{{Count: 1, Name: "Scream Tail PAL 86"}},
					Status:      "success",
				},
			},
		},
	}
}

func TestWriteOverview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overview.csv")

	if err := WriteOverview(path, sampleResults(), false); err != nil {
		t.Fatalf("WriteOverview failed: %v", err)
	}

	rows, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	if first["league_id"] != "10232" || first["rank"] != "1" {
		t.Errorf("unexpected first row: %v", first)
	}
	if first["format"] != FormatLabel {
		t.Errorf("expected format %q, got %q", FormatLabel, first["format"])
	}
	if first["total_cards"] != "2" {
		t.Errorf("expected total_cards 2, got %q", first["total_cards"])
	}
	if rows[1]["status"] != "no cards found" {
		t.Errorf("expected status to survive, got %q", rows[1]["status"])
	}
}

func TestWriteOverviewAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overview.csv")
	results := sampleResults()

	if err := WriteOverview(path, results[:1], false); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteOverview(path, results[1:], true); err != nil {
		t.Fatalf("append write failed: %v", err)
	}

	rows, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after append, got %d", len(rows))
	}
	// Earlier rows come first.
	if rows[0]["league_id"] != "10232" || rows[2]["league_id"] != "10233" {
		t.Errorf("append mode should keep earlier rows ahead: %v", rows)
	}
}

func TestWriteCards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")

	if err := WriteCards(path, sampleResults(), false); err != nil {
		t.Fatalf("WriteCards failed: %v", err)
	}

	rows, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 card rows, got %d", len(rows))
	}
	if rows[0]["full_card_name"] != "Ralts SVI 84" || rows[0]["card_count"] != "2" {
		t.Errorf("unexpected first card row: %v", rows[0])
	}
	if rows[2]["league_id"] != "10233" || rows[2]["archetype"] != "Gardevoir ex" {
		t.Errorf("unexpected last card row: %v", rows[2])
	}
}

func TestBuildStats(t *testing.T) {
	stats := BuildStats(sampleResults())

	if len(stats) != 2 {
		t.Fatalf("expected 2 archetypes, got %d", len(stats))
	}

	// Gardevoir ex appeared twice, so it sorts first.
	g := stats[0]
	if g.Archetype != "Gardevoir ex" {
		t.Fatalf("expected Gardevoir ex first, got %q", g.Archetype)
	}
	if g.Appearances != 2 {
		t.Errorf("expected 2 appearances, got %d", g.Appearances)
	}
	if g.AvgPlacement != 2.0 {
		t.Errorf("expected average placement 2.0, got %v", g.AvgPlacement)
	}
	if g.BestPlacement != 1 || g.WorstPlacement != 3 {
		t.Errorf("unexpected best/worst: %d/%d", g.BestPlacement, g.WorstPlacement)
	}
	if len(g.Tournaments) != 2 {
		t.Errorf("expected 2 tournaments, got %v", g.Tournaments)
	}

	c := stats[1]
	if c.Archetype != "Charizard ex" || c.Appearances != 1 {
		t.Errorf("unexpected second archetype: %+v", c)
	}
}

func TestWriteStatsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	stats := BuildStats(sampleResults())

	if err := WriteStats(path, stats); err != nil {
		t.Fatalf("WriteStats failed: %v", err)
	}

	loaded, err := LoadStats(path)
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if len(loaded) != len(stats) {
		t.Fatalf("expected %d stats, got %d", len(stats), len(loaded))
	}
	if loaded[0].Archetype != stats[0].Archetype {
		t.Errorf("expected %q, got %q", stats[0].Archetype, loaded[0].Archetype)
	}
	if loaded[0].AvgPlacement != stats[0].AvgPlacement {
		t.Errorf("expected avg %v, got %v", stats[0].AvgPlacement, loaded[0].AvgPlacement)
	}
}

func TestLoadStatsMissingFile(t *testing.T) {
	stats, err := LoadStats(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if stats != nil {
		t.Errorf("missing file should yield nil stats, got %v", stats)
	}
}
