package prices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
)

// BaseURL is the fallback price source.
const BaseURL = "https://limitlesstcg.com"

// Price is one card's price record, keyed by set and number.
type Price struct {
	Name          string
	Set           string
	Number        string
	EurPrice      string
	CardmarketURL string
	LastUpdated   string
}

// Key matches the price CSV's row key.
func (p Price) Key() string { return p.Set + "_" + p.Number }

// Scraper fetches prices. Cardmarket sits behind Cloudflare, so its
// requests go through a separate bypassing client.
type Scraper struct {
	client     *fetch.Client
	cardmarket *fetch.Client
	baseURL    string
}

func New(client, cardmarket *fetch.Client) *Scraper {
	return &Scraper{client: client, cardmarket: cardmarket, baseURL: BaseURL}
}

// SetBaseURL points the fallback source at a different host, for tests.
func (s *Scraper) SetBaseURL(base string) { s.baseURL = base }

// ScrapeOptions controls a price run.
type ScrapeOptions struct {
	SkipExisting bool
	SaveEvery    int // progress save interval in cards, 0 disables
	OnProgress   func(results []Price)
}

// Scrape walks the card database and returns a price record per card,
// empty where no source had a price. Existing records are consulted for
// known Cardmarket URLs and for the skip-existing shortcut.
func (s *Scraper) Scrape(ctx context.Context, cards []card.Card, existing map[string]Price, opts ScrapeOptions) []Price {
	var results []Price
	skipped := 0

	for _, c := range cards {
		key := c.PriceKey()
		prev, known := existing[key]

		if opts.SkipExisting && known && prev.EurPrice != "" {
			skipped++
			continue
		}

		p := Price{
			Name:          c.Name,
			Set:           c.Set,
			Number:        c.Number,
			CardmarketURL: c.CardmarketURL,
			LastUpdated:   time.Now().Format(time.RFC3339),
		}
		if p.CardmarketURL == "" && known {
			p.CardmarketURL = prev.CardmarketURL
		}

		if p.CardmarketURL != "" {
			p.EurPrice = s.cardmarketPrice(ctx, p.CardmarketURL)
		}
		if p.EurPrice == "" {
			price, cmURL := s.limitlessPrice(ctx, c)
			p.EurPrice = price
			if cmURL != "" && p.CardmarketURL == "" {
				p.CardmarketURL = cmURL
			}
		}

		results = append(results, p)

		if opts.SaveEvery > 0 && len(results)%opts.SaveEvery == 0 && opts.OnProgress != nil {
			logger.Info("price progress save", logger.Fields{
				"scraped": len(results),
				"total":   len(cards) - skipped,
			})
			opts.OnProgress(results)
		}
	}

	logger.Info("price scrape finished", logger.Fields{
		"scraped": len(results),
		"skipped": skipped,
	})
	return results
}

// cardmarketPrice pulls the first described-list value that looks like a
// EUR price. Cardmarket blocks often; a miss here is expected.
func (s *Scraper) cardmarketPrice(ctx context.Context, url string) string {
	body, err := s.cardmarket.Get(ctx, url)
	if err != nil {
		logger.IncrCounter("prices.cardmarket_blocked", 1)
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	price := ""
	doc.Find("dd").EachWithBreak(func(_ int, dd *goquery.Selection) bool {
		text := strings.TrimSpace(dd.Text())
		if strings.Contains(text, "€") && strings.ContainsAny(text, "0123456789") {
			price = text
			return false
		}
		return true
	})
	if price == "" {
		text := strings.TrimSpace(doc.Find("span.price").First().Text())
		if strings.Contains(text, "€") {
			price = text
		}
	}
	return price
}

// limitlessPrice reads the EUR price link from the card page's print
// versions table. The link doubles as the Cardmarket product URL.
func (s *Scraper) limitlessPrice(ctx context.Context, c card.Card) (price, cardmarketURL string) {
	url := c.CardURL
	switch {
	case url == "":
		url = fmt.Sprintf("%s/cards/%s/%s", s.baseURL, c.Set, c.Number)
	case strings.HasPrefix(url, "/"):
		url = s.baseURL + url
	}

	body, err := s.client.Get(ctx, url)
	if err != nil {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", ""
	}

	link := doc.Find("table.card-prints-versions tr.current a.card-price.eur").First()
	if link.Length() == 0 {
		// Many cards simply have no price table.
		return "", ""
	}
	price = strings.TrimSpace(link.Text())
	cardmarketURL, _ = link.Attr("href")
	return price, cardmarketURL
}
