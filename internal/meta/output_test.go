package meta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func sampleDecks() []DeckStat {
	return []DeckStat{
		{Rank: 1, Name: "Gardevoir ex", Count: 141, Share: "10.55%", ShareN: 10.55,
			Wins: 512, Losses: 361, Ties: 44, WinRate: "55.82%", RateN: 55.82},
		{Rank: 2, Name: "Charizard ex", Count: 120, Share: "8.98%", ShareN: 8.98,
			Wins: 430, Losses: 380, Ties: 31, WinRate: "52.97%", RateN: 52.97},
	}
}

func TestWriteLoadDecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decks.csv")
	decks := sampleDecks()

	if err := WriteDecks(path, decks); err != nil {
		t.Fatalf("WriteDecks failed: %v", err)
	}
	loaded, err := LoadDecks(path)
	if err != nil {
		t.Fatalf("LoadDecks failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 decks, got %d", len(loaded))
	}

	g := loaded[0]
	if g.Rank != 1 || g.Name != "Gardevoir ex" || g.Count != 141 {
		t.Errorf("unexpected deck: %+v", g)
	}
	if g.ShareN != 10.55 || g.RateN != 55.82 {
		t.Errorf("numeric columns should survive the round trip: %+v", g)
	}
	if g.Wins != 512 || g.Losses != 361 || g.Ties != 44 {
		t.Errorf("unexpected record: %+v", g)
	}
}

func TestLoadDecksMissingFile(t *testing.T) {
	decks, err := LoadDecks(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if decks != nil {
		t.Errorf("missing file should yield nil decks, got %v", decks)
	}
}

func TestSaveStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")

	if err := SaveStats(path, Stats{Tournaments: 42, Players: 1337, Matches: 9001}); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading stats file: %v", err)
	}
	var f statsFile
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("stats file is not valid JSON: %v", err)
	}
	if f.Tournaments != 42 || f.Players != 1337 || f.Matches != 9001 {
		t.Errorf("unexpected stats: %+v", f.Stats)
	}
	if f.UpdatedAt.IsZero() {
		t.Error("expected a capture timestamp")
	}
}

func TestSaveAnalyses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.json")
	analyses := []Analysis{{
		Deck:     "Gardevoir ex",
		Best:     []Matchup{{Deck: "Gardevoir ex", Opponent: "Charizard ex", WinRate: 60.42}},
		Positive: 1,
	}}

	if err := SaveAnalyses(path, analyses); err != nil {
		t.Fatalf("SaveAnalyses failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading analyses: %v", err)
	}
	var loaded []Analysis
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("analyses file is not valid JSON: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Deck != "Gardevoir ex" {
		t.Errorf("unexpected analyses: %+v", loaded)
	}
	if len(loaded[0].Best) != 1 || loaded[0].Best[0].Opponent != "Charizard ex" {
		t.Errorf("unexpected best matchups: %+v", loaded[0].Best)
	}
}
