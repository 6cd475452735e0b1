package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/logger"
	"github.com/phelbig/tcgdata/internal/state"
)

// Queries for the paginated card list. The Japanese list serves the
// English translations of cards not yet released internationally.
const (
	EnglishQuery  = "lang%3Aen"
	JapaneseQuery = "lang%3Aen.t"
)

// ListOptions bounds a card list crawl.
type ListOptions struct {
	Query     string
	StartPage int
	EndPage   int             // 0 means until the last page
	SetFilter map[string]bool // empty means all sets
	Pages     *state.SeenSet  // pages already scraped, may be nil
	Existing  map[string]bool // card keys already in the database
}

// FetchCardList walks the paginated card list and returns the cards not
// already known. Pages recorded in opts.Pages are skipped and newly
// completed pages are added to it; the caller saves the state.
func (s *Scraper) FetchCardList(ctx context.Context, opts ListOptions) ([]card.Card, error) {
	base := fmt.Sprintf("%s/cards?q=%s&display=list", s.baseURL, opts.Query)

	var cards []card.Card
	seen := make(map[string]bool)
	page := opts.StartPage
	if page < 1 {
		page = 1
	}

	for {
		if opts.EndPage > 0 && page > opts.EndPage {
			break
		}
		if opts.Pages != nil && opts.Pages.Has(strconv.Itoa(page)) {
			page++
			continue
		}

		url := base
		if page > 1 {
			url = fmt.Sprintf("%s&page=%d", base, page)
		}
		body, err := s.client.Get(ctx, url)
		if err != nil {
			return cards, fmt.Errorf("fetching card list page %d: %w", page, err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return cards, err
		}

		rows := doc.Find("tbody tr")
		if rows.Length() == 0 {
			break
		}

		added := 0
		rows.Each(func(_ int, row *goquery.Selection) {
			c, ok := s.parseCardRow(row)
			if !ok {
				return
			}
			if len(opts.SetFilter) > 0 && !opts.SetFilter[c.Set] {
				return
			}
			key := c.Key()
			if seen[key] || opts.Existing[key] {
				return
			}
			seen[key] = true
			cards = append(cards, c)
			added++
		})

		logger.Debug("scraped card list page", logger.Fields{
			"page":  page,
			"rows":  rows.Length(),
			"added": added,
		})
		if opts.Pages != nil {
			opts.Pages.Add(strconv.Itoa(page))
		}

		if !hasNextPage(doc) {
			break
		}
		page++
	}

	logger.Info("fetched card list", logger.Fields{
		"query": opts.Query,
		"cards": len(cards),
	})
	return cards, nil
}

// parseCardRow reads one list row. Column order is Set, No, Name, Type.
func (s *Scraper) parseCardRow(row *goquery.Selection) (card.Card, bool) {
	cells := row.Find("td")
	if cells.Length() < 4 {
		return card.Card{}, false
	}

	c := card.Card{
		Set:    strings.TrimSpace(cells.Eq(0).Text()),
		Number: strings.TrimSpace(cells.Eq(1).Text()),
		Name:   card.CleanName(strings.TrimSpace(cells.Eq(2).Text())),
		Type:   strings.TrimSpace(cells.Eq(3).Text()),
	}
	if c.Name == "" {
		return card.Card{}, false
	}
	if href, ok := cells.Eq(2).Find("a").First().Attr("href"); ok {
		if strings.HasPrefix(href, "/") {
			href = s.baseURL + href
		}
		c.CardURL = href
	}
	return c, true
}

func hasNextPage(doc *goquery.Document) bool {
	next := doc.Find(".pagination a[rel='next'], .pagination .page-item.next a, .pagination a[aria-label='Next']").First()
	if next.Length() == 0 {
		return false
	}
	if class, ok := next.Parent().Attr("class"); ok && strings.Contains(strings.ToLower(class), "disabled") {
		return false
	}
	_, hasHref := next.Attr("href")
	return hasHref
}

// LatestSets reads the first list page and returns the first n distinct
// set codes, newest first. Used to decide whether the Japanese database
// already covers the current sets.
func (s *Scraper) LatestSets(ctx context.Context, query string, n int) ([]string, error) {
	body, err := s.client.Get(ctx, fmt.Sprintf("%s/cards?q=%s&display=list", s.baseURL, query))
	if err != nil {
		return nil, fmt.Errorf("fetching card list: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var sets []string
	seen := make(map[string]bool)
	doc.Find("tbody tr td:first-child").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		code := strings.TrimSpace(cell.Text())
		if code == "" || seen[code] {
			return true
		}
		seen[code] = true
		sets = append(sets, code)
		return len(sets) < n
	})
	return sets, nil
}

// FilterLatestSets keeps only cards from the n most recently seen sets.
// First appearance order in the list is release order, newest first.
func FilterLatestSets(cards []card.Card, n int) ([]card.Card, []string) {
	var order []string
	seen := make(map[string]bool)
	for _, c := range cards {
		if !seen[c.Set] {
			seen[c.Set] = true
			order = append(order, c.Set)
		}
	}
	if len(order) > n {
		order = order[:n]
	}

	keep := make(map[string]bool, len(order))
	for _, code := range order {
		keep[code] = true
	}
	var filtered []card.Card
	for _, c := range cards {
		if keep[c.Set] {
			filtered = append(filtered, c)
		}
	}
	return filtered, order
}

var databaseHeader = []string{
	"name", "set", "number", "type", "card_url",
	"image_url", "rarity", "international_prints", "cardmarket_url",
}

// LoadDatabase reads a card database CSV. A missing file yields nil.
func LoadDatabase(path string) ([]card.Card, error) {
	rows, err := csvutil.ReadAll(path, csvutil.Options{})
	if err != nil || rows == nil {
		return nil, err
	}

	cards := make([]card.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, card.Card{
			Name:                row["name"],
			Set:                 row["set"],
			Number:              row["number"],
			Type:                row["type"],
			Rarity:              row["rarity"],
			CardURL:             row["card_url"],
			ImageURL:            row["image_url"],
			InternationalPrints: row["international_prints"],
			CardmarketURL:       row["cardmarket_url"],
		})
	}
	return cards, nil
}

// WriteDatabase writes a card database CSV, sorted by set then numeric
// card number so diffs between runs stay readable.
func WriteDatabase(path string, cards []card.Card) error {
	sorted := make([]card.Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Set != sorted[j].Set {
			return sorted[i].Set < sorted[j].Set
		}
		return csvutil.ParseInt(sorted[i].Number) < csvutil.ParseInt(sorted[j].Number)
	})

	w, err := csvutil.Create(path, databaseHeader, csvutil.Options{})
	if err != nil {
		return err
	}
	defer w.Close()

	for _, c := range sorted {
		err := w.Write([]string{
			c.Name, c.Set, c.Number, c.Type, c.CardURL,
			c.ImageURL, c.Rarity, c.InternationalPrints, c.CardmarketURL,
		})
		if err != nil {
			return fmt.Errorf("writing card row: %w", err)
		}
	}
	return w.Close()
}

// MergeDatabase folds newly scraped cards into the stored database,
// keeping every existing row. Returns the merged set and how many rows
// were new.
func MergeDatabase(existing, scraped []card.Card) ([]card.Card, int) {
	keys := make(map[string]bool, len(existing))
	for _, c := range existing {
		keys[c.Key()] = true
	}

	merged := existing
	added := 0
	for _, c := range scraped {
		if keys[c.Key()] {
			continue
		}
		keys[c.Key()] = true
		merged = append(merged, c)
		added++
	}
	return merged, added
}

// Keys builds the dedup key set for a card slice.
func Keys(cards []card.Card) map[string]bool {
	keys := make(map[string]bool, len(cards))
	for _, c := range cards {
		keys[c.Key()] = true
	}
	return keys
}
