package cityleague

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
)

const (
	// BaseURL lists Japanese City League tournaments, newest first.
	BaseURL = "https://limitlesstcg.com/tournaments/jp"

	// FormatLabel tags every output row from this scraper.
	FormatLabel = "City League (JP)"
)

// Tournament is one City League event from the listing page.
type Tournament struct {
	ID   string
	URL  string
	Name string
	Date string
	When time.Time
}

// DecklistRef is a placement row on a tournament page.
type DecklistRef struct {
	Rank      int
	URL       string
	Archetype string
}

// DeckCard is one decklist entry. Pokémon names carry the set code and
// number ("Gardevoir ex SVI 86"); Trainer and Energy names stand alone.
type DeckCard struct {
	Count int
	Name  string
}

// Decklist is a placement with its extracted cards.
type Decklist struct {
	DecklistRef
	Cards  []DeckCard
	Status string
}

// Scraper fetches and parses City League pages.
type Scraper struct {
	client  *fetch.Client
	baseURL string
	index   *card.Index
	lookup  *card.Lookup
}

// New creates a City League scraper. The index classifies decklist entries;
// the lookup resolves Pokémon prints with missing set/number data.
func New(client *fetch.Client, index *card.Index, lookup *card.Lookup) *Scraper {
	return &Scraper{client: client, baseURL: BaseURL, index: index, lookup: lookup}
}

// SetBaseURL redirects the scraper at a test server.
func (s *Scraper) SetBaseURL(u string) { s.baseURL = u }

var tournamentHref = regexp.MustCompile(`/tournaments/jp/(\d+)$`)
var linkDate = regexp.MustCompile(`\d{1,2}\s+[A-Za-z]{3}\s+\d{2,4}`)

// ListTournaments returns the tournaments whose listing date falls inside
// [start, end], deduplicated by ID. The listing is requested with show=500
// so the window rarely spans pages.
func (s *Scraper) ListTournaments(ctx context.Context, start, end time.Time) ([]Tournament, error) {
	body, err := s.client.Get(ctx, s.baseURL+"?show=500")
	if err != nil {
		return nil, fmt.Errorf("fetching tournament list: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing tournament list: %w", err)
	}

	seen := make(map[string]bool)
	var tournaments []Tournament

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := tournamentHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id := m[1]
		if seen[id] {
			return
		}

		dateText := linkDate.FindString(strings.TrimSpace(sel.Text()))
		if dateText == "" {
			return
		}
		when, err := parseListingDate(dateText)
		if err != nil {
			logger.Debug("unparseable tournament date", logger.Fields{"text": dateText})
			return
		}
		if when.Before(start) || when.After(end) {
			return
		}

		seen[id] = true
		tournaments = append(tournaments, Tournament{
			ID:   id,
			URL:  fmt.Sprintf("%s/%s", s.baseURL, id),
			Date: dateText,
			When: when,
		})
	})

	sort.Slice(tournaments, func(i, j int) bool {
		return tournaments[i].When.Before(tournaments[j].When)
	})
	logger.Info("tournaments in range", logger.Fields{
		"count": len(tournaments),
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	})
	return tournaments, nil
}

// parseListingDate parses "24 Jan 26" and "24 Jan 2026".
func parseListingDate(text string) (time.Time, error) {
	for _, layout := range []string{"2 Jan 06", "2 Jan 2006"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", text)
}

var titleSuffix = regexp.MustCompile(`\s*[–-]\s*Limitless.*$`)
var longDate = regexp.MustCompile(`\d{1,2}(?:st|nd|rd|th)?\s+\w+\s+\d{4}`)

// FetchInfo fills in the tournament name (from the page title) and the
// long-form date when the listing had none.
func (s *Scraper) FetchInfo(ctx context.Context, t *Tournament) error {
	body, err := s.client.Get(ctx, t.URL)
	if err != nil {
		return fmt.Errorf("fetching league page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing league page: %w", err)
	}

	t.Name = "Unknown League"
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		t.Name = titleSuffix.ReplaceAllString(title, "")
	}
	if t.Date == "" {
		t.Date = longDate.FindString(body)
	}
	return nil
}

var decklistHref = regexp.MustCompile(`^https://limitlesstcg\.com/decks/list/jp/\d+$`)

// FetchDecklists returns the placement rows of a tournament page: rank,
// decklist URL and the archetype read from the deck's sprite alt texts.
// max <= 0 returns every row.
func (s *Scraper) FetchDecklists(ctx context.Context, t Tournament, max int) ([]DecklistRef, error) {
	body, err := s.client.Get(ctx, t.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching tournament page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing tournament page: %w", err)
	}

	seen := make(map[string]bool)
	var refs []DecklistRef

	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		placement := strings.TrimSpace(cells.Eq(0).Text())
		rank, err := strconv.Atoi(placement)
		if err != nil {
			return
		}

		var url string
		row.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if decklistHref.MatchString(href) {
				url = href
				return false
			}
			return true
		})
		if url == "" || seen[url] {
			return
		}
		seen[url] = true

		var names []string
		cells.Eq(2).Find("img[alt]").Each(func(i int, img *goquery.Selection) {
			if alt, _ := img.Attr("alt"); alt != "" {
				names = append(names, card.FixMegaName(alt))
			}
		})
		archetype := "Unknown"
		if len(names) > 0 {
			archetype = strings.Join(names, " ")
		}

		refs = append(refs, DecklistRef{Rank: rank, URL: url, Archetype: archetype})
	})

	if max > 0 && len(refs) > max {
		refs = refs[:max]
	}
	return refs, nil
}

// FetchCards extracts the card entries of a decklist page. Entries that the
// card index does not recognize are dropped (the markup leaks tournament
// titles into decklist-card divs). Trainer and Energy entries keep a bare
// name; Pokémon entries keep or acquire a set code and number, resolving
// missing prints through the lookup.
func (s *Scraper) FetchCards(ctx context.Context, decklistURL string) ([]DeckCard, error) {
	body, err := s.client.Get(ctx, decklistURL)
	if err != nil {
		return nil, fmt.Errorf("fetching decklist: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing decklist: %w", err)
	}

	seen := make(map[string]bool)
	var cards []DeckCard
	var pending []int // indexes into cards needing a print lookup

	doc.Find("div.decklist-card").Each(func(i int, sel *goquery.Selection) {
		name := card.CleanName(sel.Find("span.card-name").First().Text())
		if name == "" {
			return
		}
		count, err := strconv.Atoi(strings.TrimSpace(sel.Find("span.card-count").First().Text()))
		if err != nil {
			return
		}
		if !s.index.IsValidName(name) {
			logger.Debug("skipping non-card entry", logger.Fields{"name": name})
			return
		}

		set, _ := sel.Attr("data-set")
		number, _ := sel.Attr("data-number")
		set = card.FixSetCode(strings.ToUpper(strings.TrimSpace(set)))
		number = strings.TrimSpace(number)

		var full, key string
		needsLookup := false
		if s.index.IsTrainerOrEnergy(name) {
			full = name
			key = strings.ToLower(name)
		} else if set == "" || number == "" {
			full = name
			key = strings.ToLower(name)
			needsLookup = true
		} else {
			full = fmt.Sprintf("%s %s %s", name, set, number)
			key = strings.ToLower(fmt.Sprintf("%s|%s|%s", name, set, number))
		}

		if seen[key] {
			return
		}
		seen[key] = true
		cards = append(cards, DeckCard{Count: count, Name: full})
		if needsLookup {
			pending = append(pending, len(cards)-1)
		}
	})

	for _, idx := range pending {
		name := cards[idx].Name
		p, err := s.lookup.Resolve(ctx, name)
		if err != nil || p == nil {
			// Keep the card without a print rather than dropping it.
			logger.Warn("print lookup failed", logger.Fields{"name": name})
			continue
		}
		cards[idx].Name = fmt.Sprintf("%s %s %s", name, p.Set, p.Number)
	}

	return cards, nil
}

// ScrapeTournament assembles the decklists of one tournament.
func (s *Scraper) ScrapeTournament(ctx context.Context, t Tournament, maxDecklists int) ([]Decklist, error) {
	refs, err := s.FetchDecklists(ctx, t, maxDecklists)
	if err != nil {
		return nil, err
	}

	decklists := make([]Decklist, 0, len(refs))
	for _, ref := range refs {
		cards, err := s.FetchCards(ctx, ref.URL)
		if err != nil {
			logger.Warn("decklist fetch failed", logger.Fields{"url": ref.URL, "error": err.Error()})
			decklists = append(decklists, Decklist{DecklistRef: ref, Status: "fetch failed"})
			continue
		}
		status := "success"
		if len(cards) == 0 {
			status = "no cards found"
		}
		decklists = append(decklists, Decklist{DecklistRef: ref, Cards: cards, Status: status})
	}
	return decklists, nil
}
