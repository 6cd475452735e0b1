package cityleague

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/fetch"
)

func fixtureServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for route, fixture := range routes {
		data, err := os.ReadFile("../../testdata/fixtures/" + fixture)
		if err != nil {
			t.Fatalf("failed to load test fixture: %v", err)
		}
		mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
			w.Write(data)
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testCardIndex() *card.Index {
	return card.NewIndex([]card.Card{
		{Name: "Ralts", Type: "PBasic"},
		{Name: "Gardevoir ex", Type: "PStage2"},
		{Name: "Scream Tail", Type: "PBasic"},
		{Name: "Ultra Ball", Type: "Item"},
		{Name: "Basic Psychic Energy", Type: ""},
	})
}

func TestListTournaments(t *testing.T) {
	server := fixtureServer(t, map[string]string{"/": "city_league_list.html"})

	s := New(fetch.New(), testCardIndex(), nil)
	s.SetBaseURL(server.URL)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	tournaments, err := s.ListTournaments(context.Background(), start, end)
	if err != nil {
		t.Fatalf("ListTournaments failed: %v", err)
	}

	if len(tournaments) != 3 {
		t.Fatalf("expected 3 tournaments in range, got %d", len(tournaments))
	}

	// Sorted by date: 24 Jan, 25 Jan, 2 Feb.
	expectedIDs := []string{"10231", "10232", "10233"}
	for i, id := range expectedIDs {
		if tournaments[i].ID != id {
			t.Errorf("tournament %d: expected ID %s, got %s", i, id, tournaments[i].ID)
		}
	}

	for _, tour := range tournaments {
		if tour.Date == "" {
			t.Errorf("tournament %s has no date", tour.ID)
		}
		if tour.URL == "" {
			t.Errorf("tournament %s has no URL", tour.ID)
		}
	}
}

func TestFetchInfo(t *testing.T) {
	server := fixtureServer(t, map[string]string{"/": "city_league_tournament.html"})

	s := New(fetch.New(), testCardIndex(), nil)
	tour := Tournament{ID: "10232", URL: server.URL}
	if err := s.FetchInfo(context.Background(), &tour); err != nil {
		t.Fatalf("FetchInfo failed: %v", err)
	}

	if tour.Name != "City League Osaka" {
		t.Errorf("expected name 'City League Osaka', got %q", tour.Name)
	}
	if tour.Date != "25th January 2026" {
		t.Errorf("expected the long-form date from the page body, got %q", tour.Date)
	}
}

func TestFetchDecklists(t *testing.T) {
	server := fixtureServer(t, map[string]string{"/": "city_league_tournament.html"})

	s := New(fetch.New(), testCardIndex(), nil)
	refs, err := s.FetchDecklists(context.Background(), Tournament{URL: server.URL}, 0)
	if err != nil {
		t.Fatalf("FetchDecklists failed: %v", err)
	}

	// Rank 3 repeats rank 2's URL, rank 4 has no decklist link.
	if len(refs) != 2 {
		t.Fatalf("expected 2 decklist refs, got %d", len(refs))
	}

	if refs[0].Rank != 1 || refs[0].Archetype != "gardevoir" {
		t.Errorf("unexpected first ref: %+v", refs[0])
	}
	if refs[1].Rank != 2 || refs[1].Archetype != "Mega charizard pidgeot" {
		t.Errorf("unexpected second ref: %+v", refs[1])
	}

	limited, err := s.FetchDecklists(context.Background(), Tournament{URL: server.URL}, 1)
	if err != nil {
		t.Fatalf("FetchDecklists with max failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected max to cap the refs at 1, got %d", len(limited))
	}
}

func TestFetchCards(t *testing.T) {
	server := fixtureServer(t, map[string]string{
		"/decklist": "city_league_decklist.html",
		"/cards":    "card_search.html",
	})

	client := fetch.New()
	lookup := card.NewLookupWithBase(client, server.URL)
	s := New(client, testCardIndex(), lookup)

	cards, err := s.FetchCards(context.Background(), server.URL+"/decklist")
	if err != nil {
		t.Fatalf("FetchCards failed: %v", err)
	}

	expected := map[string]int{
		"Ralts SVI 84":         2,
		"Gardevoir ex SVI 86":  2, // duplicate entries collapse to one row
		"Scream Tail PAL 86":   1, // resolved through the print lookup
		"Ultra Ball":           4, // trainers keep a bare name
		"Basic Psychic Energy": 9,
	}
	if len(cards) != len(expected) {
		t.Fatalf("expected %d cards, got %d: %+v", len(expected), len(cards), cards)
	}
	for _, c := range cards {
		count, ok := expected[c.Name]
		if !ok {
			t.Errorf("unexpected card %q", c.Name)
			continue
		}
		if c.Count != count {
			t.Errorf("card %q: expected count %d, got %d", c.Name, count, c.Count)
		}
	}
}

func TestParseListingDate(t *testing.T) {
	tests := []struct {
		text string
		ok   bool
	}{
		{"24 Jan 26", true},
		{"2 Feb 2026", true},
		{"not a date", false},
	}
	for _, tt := range tests {
		_, err := parseListingDate(tt.text)
		if (err == nil) != tt.ok {
			t.Errorf("parseListingDate(%q) err = %v", tt.text, err)
		}
	}
}
