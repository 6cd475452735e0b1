package prices

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	prices, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected an empty map, got %v", prices)
	}
}

func TestSaveMergePreservesPrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")

	first := []Price{
		{Name: "Gardevoir ex", Set: "PAF", Number: "233", EurPrice: "12.80 €", CardmarketURL: "https://example.com/g", LastUpdated: "2026-08-01"},
		{Name: "Pikachu ex", Set: "SSP", Number: "57", EurPrice: "4,20 €", LastUpdated: "2026-08-01"},
	}
	if err := Save(path, first); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second := []Price{
		// Fresh price replaces the stored one.
		{Name: "Gardevoir ex", Set: "PAF", Number: "233", EurPrice: "13.10 €", LastUpdated: "2026-08-30"},
		// Empty price must not clobber the stored Pikachu price.
		{Name: "Pikachu ex", Set: "SSP", Number: "57", EurPrice: "", LastUpdated: "2026-08-30"},
		// Unknown card registers even without a price.
		{Name: "Weedle", Set: "MEG", Number: "2", EurPrice: "", LastUpdated: "2026-08-30"},
	}
	if err := Save(path, second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	merged, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 records, got %d", len(merged))
	}

	if merged["PAF_233"].EurPrice != "13.10 €" {
		t.Errorf("fresh price should replace, got %q", merged["PAF_233"].EurPrice)
	}
	if merged["SSP_57"].EurPrice != "4,20 €" {
		t.Errorf("empty price clobbered the stored one: %q", merged["SSP_57"].EurPrice)
	}
	if merged["SSP_57"].LastUpdated != "2026-08-01" {
		t.Errorf("the stored record should survive untouched, got %+v", merged["SSP_57"])
	}
	if _, ok := merged["MEG_2"]; !ok {
		t.Error("unknown cards should register without a price")
	}
}
