package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/state"
)

func cardListServer(t *testing.T) *Scraper {
	t.Helper()
	page1, err := os.ReadFile("../../testdata/fixtures/card_list_page1.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	page2, err := os.ReadFile("../../testdata/fixtures/card_list_page2.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write(page2)
			return
		}
		w.Write(page1)
	}))
	t.Cleanup(server.Close)

	s := New(fetch.New())
	s.SetBaseURL(server.URL)
	return s
}

func TestFetchCardList(t *testing.T) {
	s := cardListServer(t)

	cards, err := s.FetchCardList(context.Background(), ListOptions{Query: EnglishQuery})
	if err != nil {
		t.Fatalf("FetchCardList failed: %v", err)
	}

	// Three cards on page 1, two on page 2, then the disabled next link
	// stops the crawl.
	if len(cards) != 5 {
		t.Fatalf("expected 5 cards across both pages, got %d", len(cards))
	}

	first := cards[0]
	if first.Name != "Venusaur ex" || first.Set != "MEG" || first.Number != "1" {
		t.Errorf("unexpected first card: %+v", first)
	}
	if first.Type != "GStage2" {
		t.Errorf("unexpected type %q", first.Type)
	}
	if first.CardURL == "" || first.CardURL[0] == '/' {
		t.Errorf("relative card URLs should be absolute, got %q", first.CardURL)
	}

	energy := cards[4]
	if energy.Name != "Basic Psychic Energy" || energy.Type != "" {
		t.Errorf("unexpected energy card: %+v", energy)
	}
}

func TestFetchCardListSkipsSeenPages(t *testing.T) {
	s := cardListServer(t)

	pages, err := state.LoadSeen(filepath.Join(t.TempDir(), "pages.json"))
	if err != nil {
		t.Fatal(err)
	}
	pages.Add("1")

	cards, err := s.FetchCardList(context.Background(), ListOptions{Query: EnglishQuery, Pages: pages})
	if err != nil {
		t.Fatalf("FetchCardList failed: %v", err)
	}

	// Only page 2 is fetched.
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards from page 2, got %d", len(cards))
	}
	if cards[0].Name != "Counter Gain" {
		t.Errorf("unexpected first card: %+v", cards[0])
	}
	if !pages.Has("2") {
		t.Error("newly scraped pages should be recorded")
	}
}

func TestFetchCardListSetFilter(t *testing.T) {
	s := cardListServer(t)

	opts := ListOptions{Query: EnglishQuery, SetFilter: map[string]bool{"SSP": true}}
	cards, err := s.FetchCardList(context.Background(), opts)
	if err != nil {
		t.Fatalf("FetchCardList failed: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 SSP cards, got %d", len(cards))
	}
	for _, c := range cards {
		if c.Set != "SSP" {
			t.Errorf("set filter leaked %+v", c)
		}
	}
}

func TestFetchCardListSkipsExisting(t *testing.T) {
	s := cardListServer(t)

	existing := map[string]bool{
		card.Card{Name: "Venusaur ex", Set: "MEG", Number: "1"}.Key(): true,
	}
	cards, err := s.FetchCardList(context.Background(), ListOptions{Query: EnglishQuery, Existing: existing})
	if err != nil {
		t.Fatalf("FetchCardList failed: %v", err)
	}
	if len(cards) != 4 {
		t.Fatalf("expected 4 new cards, got %d", len(cards))
	}
	for _, c := range cards {
		if c.Name == "Venusaur ex" {
			t.Error("existing card should be skipped")
		}
	}
}

func TestLatestSets(t *testing.T) {
	s := cardListServer(t)

	sets, err := s.LatestSets(context.Background(), EnglishQuery, 2)
	if err != nil {
		t.Fatalf("LatestSets failed: %v", err)
	}
	if len(sets) != 2 || sets[0] != "MEG" || sets[1] != "SSP" {
		t.Errorf("expected [MEG SSP], got %v", sets)
	}
}

func TestFilterLatestSets(t *testing.T) {
	cards := []card.Card{
		{Name: "Venusaur ex", Set: "MEG", Number: "1"},
		{Name: "Pikachu ex", Set: "SSP", Number: "57"},
		{Name: "Gardevoir ex", Set: "SVI", Number: "86"},
		{Name: "Weedle", Set: "MEG", Number: "2"},
	}

	filtered, order := FilterLatestSets(cards, 2)
	if len(order) != 2 || order[0] != "MEG" || order[1] != "SSP" {
		t.Errorf("expected [MEG SSP], got %v", order)
	}
	if len(filtered) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(filtered))
	}
	for _, c := range filtered {
		if c.Set == "SVI" {
			t.Error("SVI should be filtered out")
		}
	}
}

func TestWriteLoadDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")
	cards := []card.Card{
		{Name: "Pikachu ex", Set: "SSP", Number: "57", Type: "LBasic", CardURL: "https://example.com/cards/SSP/57"},
		{Name: "Venusaur ex", Set: "MEG", Number: "1", Type: "GStage2"},
		{Name: "Weedle", Set: "MEG", Number: "10", Type: "GBasic"},
		{Name: "Caterpie", Set: "MEG", Number: "2", Type: "GBasic"},
	}

	if err := WriteDatabase(path, cards); err != nil {
		t.Fatalf("WriteDatabase failed: %v", err)
	}
	loaded, err := LoadDatabase(path)
	if err != nil {
		t.Fatalf("LoadDatabase failed: %v", err)
	}
	if len(loaded) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(loaded))
	}

	// Sorted by set, then numeric card number: MEG 1, 2, 10 before SSP.
	expected := []string{"Venusaur ex", "Caterpie", "Weedle", "Pikachu ex"}
	for i, name := range expected {
		if loaded[i].Name != name {
			t.Errorf("position %d: expected %q, got %q", i, name, loaded[i].Name)
		}
	}
	if loaded[3].CardURL != "https://example.com/cards/SSP/57" {
		t.Errorf("card URL lost in round trip: %+v", loaded[3])
	}
}

func TestMergeDatabase(t *testing.T) {
	existing := []card.Card{
		{Name: "Venusaur ex", Set: "MEG", Number: "1"},
		{Name: "Pikachu ex", Set: "SSP", Number: "57"},
	}
	scraped := []card.Card{
		{Name: "Venusaur ex", Set: "MEG", Number: "1"}, // already known
		{Name: "Weedle", Set: "MEG", Number: "2"},
	}

	merged, added := MergeDatabase(existing, scraped)
	if added != 1 {
		t.Errorf("expected 1 added card, got %d", added)
	}
	if len(merged) != 3 {
		t.Errorf("expected 3 merged cards, got %d", len(merged))
	}
	// Existing rows keep their position.
	if merged[0].Name != "Venusaur ex" || merged[2].Name != "Weedle" {
		t.Errorf("unexpected merge order: %+v", merged)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys([]card.Card{{Name: "Weedle", Set: "MEG", Number: "2"}})
	if !keys[card.Card{Name: "Weedle", Set: "MEG", Number: "2"}.Key()] {
		t.Error("expected the card key to be present")
	}
	if len(keys) != 1 {
		t.Errorf("expected 1 key, got %d", len(keys))
	}
}
