package meta

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
)

// BaseURL is the deck statistics site.
const BaseURL = "https://play.limitlesstcg.com"

// DeckStat is one archetype's row in the usage table.
type DeckStat struct {
	Rank    int     `json:"rank"`
	Name    string  `json:"deck_name"`
	Count   int     `json:"count"`
	Share   string  `json:"share"`
	ShareN  float64 `json:"share_numeric"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Ties    int     `json:"ties"`
	WinRate string  `json:"win_rate"`
	RateN   float64 `json:"win_rate_numeric"`
}

// Stats summarizes the data volume behind a usage table.
type Stats struct {
	Tournaments int `json:"tournaments"`
	Players     int `json:"players"`
	Matches     int `json:"matches"`
}

// Matchup is one head-to-head row from a deck's matchup page.
type Matchup struct {
	Deck       string  `json:"deck_name"`
	Opponent   string  `json:"opponent"`
	WinRate    float64 `json:"win_rate"`
	Record     string  `json:"record"`
	TotalGames int     `json:"total_games"`
}

// Scraper fetches and parses the statistics pages.
type Scraper struct {
	client  *fetch.Client
	baseURL string
}

func New(client *fetch.Client) *Scraper {
	return &Scraper{client: client, baseURL: BaseURL}
}

// SetBaseURL points the scraper at a different host, for tests.
func (s *Scraper) SetBaseURL(base string) { s.baseURL = base }

var (
	recordRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)\s*-\s*(\d+)$`)
	statsRe  = regexp.MustCompile(`(\d+)\s+tournaments?,\s*(\d+)\s+players?,\s*(\d+)\s+matches`)
)

// FetchDecks downloads the usage table for a format. The returned stats
// describe the tournament sample behind the table and may be zero when the
// page omits the summary line.
func (s *Scraper) FetchDecks(ctx context.Context, format, rotation, set string) ([]DeckStat, Stats, error) {
	u := fmt.Sprintf("%s/decks?game=&format=%s&rotation=%s&set=%s",
		s.baseURL, url.QueryEscape(format), url.QueryEscape(rotation), url.QueryEscape(set))

	body, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("fetching deck statistics: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, Stats{}, fmt.Errorf("parsing deck statistics: %w", err)
	}

	stats := parseStatsLine(doc)
	decks := parseDeckTable(doc)
	if len(decks) == 0 {
		return nil, stats, fmt.Errorf("no deck rows found for format %q", format)
	}

	logger.Info("fetched deck statistics", logger.Fields{
		"format":      format,
		"decks":       len(decks),
		"tournaments": stats.Tournaments,
	})
	return decks, stats, nil
}

func parseStatsLine(doc *goquery.Document) Stats {
	var stats Stats
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		m := statsRe.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		stats.Tournaments = csvutil.ParseInt(m[1])
		stats.Players = csvutil.ParseInt(m[2])
		stats.Matches = csvutil.ParseInt(m[3])
		return false
	})
	return stats
}

func parseDeckTable(doc *goquery.Document) []DeckStat {
	var decks []DeckStat
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		rank := csvutil.ParseInt(strings.TrimSpace(cells.Eq(0).Text()))
		if rank == 0 {
			return
		}
		// Cell 1 is the deck icon column.
		name := strings.TrimSpace(cells.Eq(2).Text())
		if name == "" || name == "Other" {
			return
		}

		d := DeckStat{
			Rank:  rank,
			Name:  name,
			Count: csvutil.ParseInt(strings.TrimSpace(cells.Eq(3).Text())),
			Share: strings.TrimSpace(cells.Eq(4).Text()),
		}
		d.ShareN = parsePercent(d.Share)

		if m := recordRe.FindStringSubmatch(strings.TrimSpace(cells.Eq(5).Text())); m != nil {
			d.Wins = csvutil.ParseInt(m[1])
			d.Losses = csvutil.ParseInt(m[2])
			d.Ties = csvutil.ParseInt(m[3])
		}
		d.WinRate = strings.TrimSpace(cells.Eq(6).Text())
		d.RateN = parsePercent(d.WinRate)

		decks = append(decks, d)
	})
	return decks
}

func parsePercent(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return csvutil.ParseDecimal(s)
}

// FetchMatchups downloads one deck's head-to-head table. The site rejects
// some format and set combinations, so a fetch without the set parameter is
// tried before giving up.
func (s *Scraper) FetchMatchups(ctx context.Context, deck DeckStat, format, rotation, set string) ([]Matchup, error) {
	slug := card.DeckSlug(deck.Name)
	base := fmt.Sprintf("%s/decks/%s/matchups/?format=%s&rotation=%s",
		s.baseURL, slug, url.QueryEscape(strings.ToLower(format)), url.QueryEscape(rotation))

	body, err := s.client.Get(ctx, base+"&set="+url.QueryEscape(set))
	if err != nil {
		body, err = s.client.Get(ctx, base)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching matchups for %q: %w", deck.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return parseMatchupTable(doc, deck.Name), nil
}

// parseMatchupTable locates rows by their W-L-T record cell. Column layout
// varies between formats, so the opponent and match count are taken relative
// to the record rather than by fixed index.
func parseMatchupTable(doc *goquery.Document, deck string) []Matchup {
	var matchups []Matchup
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var texts []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(cell.Text()))
		})

		for i, text := range texts {
			m := recordRe.FindStringSubmatch(text)
			if m == nil || i < 2 || i+1 >= len(texts) {
				continue
			}
			wins := csvutil.ParseInt(m[1])
			losses := csvutil.ParseInt(m[2])
			ties := csvutil.ParseInt(m[3])
			matchups = append(matchups, Matchup{
				Deck:       deck,
				Opponent:   texts[i-2],
				WinRate:    parsePercent(texts[i+1]),
				Record:     text,
				TotalGames: wins + losses + ties,
			})
			break
		}
	})
	return matchups
}
