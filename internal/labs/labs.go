package labs

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
)

// BaseURL is the tournament results site.
const BaseURL = "https://labs.limitlesstcg.com"

// Meta labels attached to usage rows so both sources can live in one file.
const (
	MetaPlay = "Meta Play!"
	MetaLive = "Meta Live"
)

// Tournament identifies one event on the results site.
type Tournament struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Format string `json:"format"`
}

// Standing is one player's row on a standings page.
type Standing struct {
	PlayerID    string `json:"player_id"`
	DecklistURL string `json:"decklist_url"`
	Archetype   string `json:"archetype"`
}

// Scraper fetches and parses the tournament pages.
type Scraper struct {
	client  *fetch.Client
	baseURL string
	playURL string
}

func New(client *fetch.Client) *Scraper {
	return &Scraper{client: client, baseURL: BaseURL, playURL: "https://play.limitlesstcg.com"}
}

// SetBaseURL points the scraper at different hosts, for tests. The same
// host serves both sources under test.
func (s *Scraper) SetBaseURL(base string) {
	s.baseURL = base
	s.playURL = base
}

var (
	standingsHref = regexp.MustCompile(`/(\d+)/standings`)
	titleSuffix   = regexp.MustCompile(`\s*\|\s*Limitless.*$`)
	longDate      = regexp.MustCompile(`\d{1,2}(?:st|nd|rd|th)?\s+\w+\s+\d{4}`)
)

// ListTournaments collects tournament IDs from the front page, newest
// first. IDs the caller already processed are skipped via the seen func.
func (s *Scraper) ListTournaments(ctx context.Context, max int, seen func(string) bool) ([]Tournament, error) {
	body, err := s.client.Get(ctx, s.baseURL+"/")
	if err != nil {
		return nil, fmt.Errorf("fetching tournament list: %w", err)
	}

	var tournaments []Tournament
	ids := make(map[string]bool)
	skipped := 0
	for _, m := range standingsHref.FindAllStringSubmatch(body, -1) {
		id := m[1]
		if ids[id] {
			continue
		}
		ids[id] = true
		if seen != nil && seen(id) {
			skipped++
			continue
		}
		tournaments = append(tournaments, Tournament{
			ID:  id,
			URL: fmt.Sprintf("%s/%s/standings", s.baseURL, id),
		})
		if max > 0 && len(tournaments) >= max {
			break
		}
	}

	logger.Info("listed tournaments", logger.Fields{
		"found":   len(tournaments),
		"skipped": skipped,
	})
	return tournaments, nil
}

// FetchInfo fills in name, date and format for a tournament. Japanese
// events carry no explicit format marker, so the name is consulted too.
func (s *Scraper) FetchInfo(ctx context.Context, t *Tournament) error {
	body, err := s.client.Get(ctx, t.URL)
	if err != nil {
		return fmt.Errorf("fetching tournament %s: %w", t.ID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	t.Name = strings.TrimSpace(titleSuffix.ReplaceAllString(title, ""))
	t.Date = longDate.FindString(body)

	switch {
	case strings.Contains(body, "Standard (JP)"),
		strings.Contains(t.Name, "Champions League"),
		strings.Contains(t.Name, "Regional League"):
		t.Format = "Standard (JP)"
	case strings.Contains(body, "Expanded"):
		t.Format = "Expanded"
	default:
		t.Format = "Standard"
	}
	return nil
}

// FetchStandings reads the standings table. Each returned row has a
// decklist link; the archetype comes from the deck link in the same row or,
// failing that, from the Pokemon icon alt texts.
func (s *Scraper) FetchStandings(ctx context.Context, t Tournament, max int) ([]Standing, error) {
	body, err := s.client.Get(ctx, t.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching standings for %s: %w", t.ID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	playerHref := regexp.MustCompile(`^/` + regexp.QuoteMeta(t.ID) + `/player/(\d+)/decklist$`)
	deckHref := regexp.MustCompile(`^/` + regexp.QuoteMeta(t.ID) + `/decks/([^/?"]+)`)

	var standings []Standing
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		var st Standing
		row.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if m := playerHref.FindStringSubmatch(href); m != nil {
				st.PlayerID = m[1]
				st.DecklistURL = s.baseURL + href
			} else if m := deckHref.FindStringSubmatch(href); m != nil {
				st.Archetype = card.SlugToArchetype(m[1])
			}
		})
		if st.PlayerID == "" {
			return true
		}
		if st.Archetype == "" {
			st.Archetype = archetypeFromIcons(row)
		}
		standings = append(standings, st)
		return max <= 0 || len(standings) < max
	})
	return standings, nil
}

func archetypeFromIcons(row *goquery.Selection) string {
	var names []string
	row.Find("img.pokemon").Each(func(_ int, img *goquery.Selection) {
		if alt, ok := img.Attr("alt"); ok && alt != "" {
			names = append(names, card.SlugToArchetype(alt))
		}
	})
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, " ")
}
