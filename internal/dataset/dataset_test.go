package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/catalog"
	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/prices"
)

func testSets() []catalog.Set {
	return []catalog.Set{
		{Code: "MEG", Name: "Mega Evolution", Order: 3},
		{Code: "SSP", Name: "Surging Sparks", Order: 2},
		{Code: "SVI", Name: "Scarlet & Violet", Order: 1},
	}
}

func TestBuildMerged(t *testing.T) {
	english := []card.Card{
		{Name: "Gardevoir ex", Set: "SVI", Number: "86", Type: "PStage2"},
		{Name: "Pikachu ex", Set: "SSP", Number: "57", Type: "LBasic"},
	}
	japanese := []card.Card{
		{Name: "Gardevoir ex", Set: "SVI", Number: "86"}, // already released in English
		{Name: "Venusaur ex", Set: "MEG", Number: "1", Type: "GStage2"},
	}
	priceMap := map[string]prices.Price{
		"SVI_86": {EurPrice: "12.80 €", CardmarketURL: "https://example.com/g", LastUpdated: "2026-08-30"},
	}

	m := BuildMerged(english, japanese, priceMap, testSets())

	if m.TotalCards != 3 || m.EnglishCount != 2 || m.JapaneseCount != 1 {
		t.Errorf("unexpected counts: total %d, en %d, jp %d", m.TotalCards, m.EnglishCount, m.JapaneseCount)
	}
	if m.Timestamp.IsZero() {
		t.Error("expected a build timestamp")
	}

	// Newest set first: MEG, SSP, SVI.
	order := []string{"MEG", "SSP", "SVI"}
	for i, set := range order {
		if m.Cards[i].Set != set {
			t.Errorf("position %d: expected set %s, got %s", i, set, m.Cards[i].Set)
		}
	}

	byKey := make(map[string]MergedCard)
	for _, c := range m.Cards {
		byKey[c.Set+"_"+c.Number] = c
	}

	g := byKey["SVI_86"]
	if g.Language != "en" {
		t.Errorf("English rows win on the shared key, got language %q", g.Language)
	}
	if g.EurPrice != "12.80 €" || g.PriceLastUpdated != "2026-08-30" {
		t.Errorf("price join failed: %+v", g)
	}
	if g.CardmarketURL != "https://example.com/g" {
		t.Errorf("empty cardmarket URL should be filled from the price record, got %q", g.CardmarketURL)
	}

	v := byKey["MEG_1"]
	if v.Language != "jp" {
		t.Errorf("Japanese-only cards carry the jp flag, got %q", v.Language)
	}
	if v.EurPrice != "" {
		t.Errorf("no price expected for MEG 1, got %q", v.EurPrice)
	}
}

func TestSaveJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	m := BuildMerged(
		[]card.Card{{Name: "Pikachu ex", Set: "SSP", Number: "57", Type: "LBasic"}},
		nil, nil, testSets(),
	)

	jsonPath := filepath.Join(dir, "merged.json")
	if err := SaveJSON(jsonPath, m); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("reading JSON: %v", err)
	}
	var loaded Merged
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("merged file is not valid JSON: %v", err)
	}
	if diff := cmp.Diff(m.Cards, loaded.Cards); diff != "" {
		t.Errorf("cards changed in the JSON round trip (-want +got):\n%s", diff)
	}

	csvPath := filepath.Join(dir, "merged.csv")
	if err := SaveCSV(csvPath, m); err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}
	rows, err := csvutil.ReadAll(csvPath, csvutil.Options{})
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Pikachu ex" || rows[0]["set"] != "SSP" {
		t.Errorf("unexpected CSV rows: %v", rows)
	}
}

func TestFixDuplicates(t *testing.T) {
	cards := []card.Card{
		{Name: "Gardevoir ex", Set: "SVI", Number: "86"},
		{Name: "Pikachu ex", Set: "SSP", Number: "57", Type: "LBasic"},
		// More complete duplicate of the first row.
		{Name: "Gardevoir ex", Set: "SVI", Number: "86", Type: "PStage2", Rarity: "Double Rare"},
	}

	fixed, dropped := FixDuplicates(cards)
	if dropped != 1 {
		t.Errorf("expected 1 dropped row, got %d", dropped)
	}
	if len(fixed) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(fixed))
	}

	// First-seen order is preserved, but the richer row wins.
	if fixed[0].Name != "Gardevoir ex" || fixed[0].Rarity != "Double Rare" {
		t.Errorf("expected the more complete duplicate first, got %+v", fixed[0])
	}
	if fixed[1].Name != "Pikachu ex" {
		t.Errorf("unexpected second card: %+v", fixed[1])
	}
}

func TestFixDuplicatesNoChange(t *testing.T) {
	cards := []card.Card{
		{Name: "A", Set: "S1", Number: "1"},
		{Name: "B", Set: "S1", Number: "2"},
	}
	fixed, dropped := FixDuplicates(cards)
	if dropped != 0 || len(fixed) != 2 {
		t.Errorf("expected no changes, got %d dropped, %d cards", dropped, len(fixed))
	}
}
