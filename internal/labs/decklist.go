package labs

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/card"
)

// Entry is one line of a decklist.
type Entry struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Set    string `json:"set_code"`
	Number string `json:"set_number"`
}

// Deck is one player's list together with its archetype and source label.
type Deck struct {
	Archetype string  `json:"archetype"`
	Cards     []Entry `json:"cards"`
	Source    string  `json:"source"`
}

// Size returns the total number of cards in the list.
func (d Deck) Size() int {
	n := 0
	for _, e := range d.Cards {
		n += e.Count
	}
	return n
}

// Complete reports whether the list is a legal 60-card deck. Partial lists
// show up when a page renders before all sections load and would skew the
// usage counts.
func (d Deck) Complete() bool { return d.Size() == 60 }

// FetchDecklist downloads and parses one player's decklist page. The page
// carries the list as JSON inside a script tag.
func (s *Scraper) FetchDecklist(ctx context.Context, url string) ([]Entry, error) {
	body, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching decklist: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return parseEmbeddedDecklist(doc), nil
}

// deckPayload mirrors the JSON the decklist pages embed. The outer object
// wraps a second JSON document in its body field.
type deckPayload struct {
	Body string `json:"body"`
}

type deckBody struct {
	OK      bool `json:"ok"`
	Message struct {
		Pokemon []deckCard `json:"pokemon"`
		Trainer []deckCard `json:"trainer"`
		Energy  []deckCard `json:"energy"`
	} `json:"message"`
}

type deckCard struct {
	Count  int    `json:"count"`
	Name   string `json:"name"`
	Set    string `json:"set"`
	Number string `json:"number"`
}

func parseEmbeddedDecklist(doc *goquery.Document) []Entry {
	var entries []Entry
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" || !strings.Contains(strings.ToLower(text), "pokemon") {
			return true
		}

		var payload deckPayload
		if err := json.Unmarshal([]byte(text), &payload); err != nil || payload.Body == "" {
			return true
		}
		var body deckBody
		if err := json.Unmarshal([]byte(payload.Body), &body); err != nil || !body.OK {
			return true
		}

		for _, section := range [][]deckCard{body.Message.Pokemon, body.Message.Trainer, body.Message.Energy} {
			for _, c := range section {
				name := card.CleanName(c.Name)
				if name == "" || c.Count == 0 {
					continue
				}
				entries = append(entries, Entry{
					Name:   name,
					Count:  c.Count,
					Set:    strings.ToUpper(strings.TrimSpace(c.Set)),
					Number: strings.TrimSpace(c.Number),
				})
			}
		}
		return len(entries) == 0
	})
	return entries
}

// cardLine matches "3 Iono (PAL 185)" style anchors on the online deck pages.
var cardLine = regexp.MustCompile(`^(\d+)\s+(.+?)(?:\s*\(([A-Z0-9-]+)\s+(\d+)\))?$`)

// parseSectionedDecklist reads the HTML deck widget the online site uses,
// with one div.cards block per category.
func parseSectionedDecklist(doc *goquery.Document) []Entry {
	var entries []Entry
	doc.Find("div.cards a").Each(func(_ int, a *goquery.Selection) {
		m := cardLine.FindStringSubmatch(strings.TrimSpace(a.Text()))
		if m == nil {
			return
		}
		count, _ := strconv.Atoi(m[1])
		e := Entry{
			Name:  card.CleanName(m[2]),
			Count: count,
			Set:   m[3],
		}
		if m[4] != "" {
			e.Number = m[4]
		}
		if e.Set == "" {
			// Fall back to the print encoded in the card link.
			if href, ok := a.Attr("href"); ok {
				if hm := printHref.FindStringSubmatch(href); hm != nil {
					e.Set, e.Number = hm[1], hm[2]
				}
			}
		}
		if e.Name != "" && e.Count > 0 {
			entries = append(entries, e)
		}
	})
	return entries
}

var printHref = regexp.MustCompile(`/([A-Z0-9-]+)/(\d+)/?$`)
