package labs

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/logger"
)

// OnlineOptions bounds the online deck list crawl. The online site exposes
// far more lists than the usage table needs, so both the number of decks
// and the lists per deck are capped.
type OnlineOptions struct {
	SetFilter    string // only crawl decks tagged with this set code
	MaxDecks     int
	ListsPerDeck int
}

// DefaultOnlineOptions matches the bounds the usage table was built with.
func DefaultOnlineOptions(setFilter string) OnlineOptions {
	return OnlineOptions{SetFilter: setFilter, MaxDecks: 60, ListsPerDeck: 20}
}

// FetchOnlineDecks crawls the online deck pages and returns complete lists
// tagged with the Meta Live label.
func (s *Scraper) FetchOnlineDecks(ctx context.Context, opts OnlineOptions) ([]Deck, error) {
	body, err := s.client.Get(ctx, s.playURL+"/decks?game=PTCG")
	if err != nil {
		return nil, fmt.Errorf("fetching online deck index: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	type deckLink struct {
		slug string
		href string
	}
	var links []deckLink
	seen := make(map[string]bool)
	doc.Find("a[href^='/decks/']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.Contains(href, "/matchups") {
			return
		}
		if opts.SetFilter != "" && !strings.Contains(href, "set="+opts.SetFilter) {
			return
		}
		slug := strings.TrimPrefix(href, "/decks/")
		if i := strings.IndexAny(slug, "?/"); i >= 0 {
			slug = slug[:i]
		}
		if slug == "" || seen[slug] {
			return
		}
		seen[slug] = true
		links = append(links, deckLink{slug: slug, href: href})
	})
	if opts.MaxDecks > 0 && len(links) > opts.MaxDecks {
		links = links[:opts.MaxDecks]
	}

	var decks []Deck
	for _, link := range links {
		name := card.SlugToArchetype(link.slug)
		lists, err := s.fetchOnlineLists(ctx, link.href, opts.ListsPerDeck)
		if err != nil {
			logger.Warn("online deck fetch failed", logger.Fields{
				"deck":  name,
				"error": err.Error(),
			})
			continue
		}
		for _, cards := range lists {
			d := Deck{Archetype: name, Cards: cards, Source: MetaLive}
			if d.Complete() {
				decks = append(decks, d)
			}
		}
	}

	logger.Info("fetched online decks", logger.Fields{
		"archetypes": len(links),
		"decks":      len(decks),
	})
	return decks, nil
}

// fetchOnlineLists follows a deck page's tournament decklist links, keeping
// at most max parsed lists.
func (s *Scraper) fetchOnlineLists(ctx context.Context, deckHref string, max int) ([][]Entry, error) {
	body, err := s.client.Get(ctx, s.playURL+deckHref)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var hrefs []string
	seen := make(map[string]bool)
	doc.Find("a[href^='/tournament/']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(href, "/decklist") || seen[href] {
			return
		}
		seen[href] = true
		hrefs = append(hrefs, href)
	})

	var lists [][]Entry
	for _, href := range hrefs {
		if max > 0 && len(lists) >= max {
			break
		}
		page, err := s.client.Get(ctx, s.playURL+href)
		if err != nil {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		if err != nil {
			continue
		}
		if cards := parseSectionedDecklist(doc); len(cards) > 0 {
			lists = append(lists, cards)
		}
	}
	return lists, nil
}
