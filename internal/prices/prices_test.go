package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/fetch"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return data
}

func TestLimitlessPrice(t *testing.T) {
	fixture := loadFixture(t, "card_page.html")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()

	client := fetch.New()
	s := New(client, client)
	s.SetBaseURL(server.URL)

	price, cmURL := s.limitlessPrice(context.Background(), card.Card{Set: "PAF", Number: "233"})
	if price != "12.80 €" {
		t.Errorf("expected the current print's EUR price, got %q", price)
	}
	if cmURL != "https://www.cardmarket.com/en/Pokemon/Products/Singles/Paldean-Fates/Gardevoir-ex-V1-PAF233" {
		t.Errorf("unexpected cardmarket URL %q", cmURL)
	}
}

func TestLimitlessPriceNoTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>Some Card</h1></body></html>"))
	}))
	defer server.Close()

	client := fetch.New()
	s := New(client, client)
	s.SetBaseURL(server.URL)

	price, cmURL := s.limitlessPrice(context.Background(), card.Card{Set: "SVE", Number: "5"})
	if price != "" || cmURL != "" {
		t.Errorf("expected no price without a versions table, got %q / %q", price, cmURL)
	}
}

func TestCardmarketPrice(t *testing.T) {
	fixture := loadFixture(t, "cardmarket_product.html")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()

	client := fetch.New()
	s := New(client, client)

	// The first dd holds a plain item count and must be skipped.
	price := s.cardmarketPrice(context.Background(), server.URL)
	if price != "11,90 €" {
		t.Errorf("expected the first EUR value, got %q", price)
	}
}

func TestScrape(t *testing.T) {
	cardPage := loadFixture(t, "card_page.html")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(cardPage)
	}))
	defer server.Close()

	client := fetch.New()
	s := New(client, client)
	s.SetBaseURL(server.URL)

	cards := []card.Card{
		{Name: "Gardevoir ex", Set: "PAF", Number: "233"},
		{Name: "Pikachu ex", Set: "SSP", Number: "57"},
	}
	existing := map[string]Price{
		"SSP_57": {Name: "Pikachu ex", Set: "SSP", Number: "57", EurPrice: "4,20 €"},
	}

	results := s.Scrape(context.Background(), cards, existing, ScrapeOptions{SkipExisting: true})
	if len(results) != 1 {
		t.Fatalf("expected 1 result with skip-existing, got %d", len(results))
	}

	p := results[0]
	if p.Key() != "PAF_233" {
		t.Errorf("unexpected key %q", p.Key())
	}
	if p.EurPrice != "12.80 €" {
		t.Errorf("unexpected price %q", p.EurPrice)
	}
	if p.CardmarketURL == "" {
		t.Error("the cardmarket URL from the price link should be kept")
	}
	if p.LastUpdated == "" {
		t.Error("expected a last updated timestamp")
	}
}

func TestScrapeProgressSaves(t *testing.T) {
	cardPage := loadFixture(t, "card_page.html")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(cardPage)
	}))
	defer server.Close()

	client := fetch.New()
	s := New(client, client)
	s.SetBaseURL(server.URL)

	cards := []card.Card{
		{Name: "A", Set: "S1", Number: "1"},
		{Name: "B", Set: "S1", Number: "2"},
		{Name: "C", Set: "S1", Number: "3"},
	}

	var saves int
	opts := ScrapeOptions{
		SaveEvery:  2,
		OnProgress: func(results []Price) { saves++ },
	}
	results := s.Scrape(context.Background(), cards, nil, opts)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if saves != 1 {
		t.Errorf("expected 1 progress save after 2 cards, got %d", saves)
	}
}
