package card

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
)

// Print is the set/number pair a lookup resolves a card name to.
type Print struct {
	Set    string
	Number string
}

// Lookup resolves card names to their set code and number via the Limitless
// card search. Results are cached for the run, including misses, so a deck
// full of the same missing card costs one request.
type Lookup struct {
	client  *fetch.Client
	baseURL string

	mu    sync.Mutex
	cache map[string]*Print // nil value = known miss
}

// NewLookup creates a lookup against limitlesstcg.com.
func NewLookup(client *fetch.Client) *Lookup {
	return &Lookup{
		client:  client,
		baseURL: "https://limitlesstcg.com",
		cache:   make(map[string]*Print),
	}
}

// NewLookupWithBase creates a lookup against a different base URL, for tests.
func NewLookupWithBase(client *fetch.Client, baseURL string) *Lookup {
	l := NewLookup(client)
	l.baseURL = baseURL
	return l
}

// Resolve finds the set/number for a card name. Names with a possessive
// prefix ("Team Rocket's Porygon") are retried without it, and an exact
// name search is followed by a broad one before giving up. A nil result
// with nil error means the card could not be found.
func (l *Lookup) Resolve(ctx context.Context, name string) (*Print, error) {
	l.mu.Lock()
	if p, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return p, nil
	}
	l.mu.Unlock()

	queries := []string{exactQuery(name)}
	if _, base, found := strings.Cut(name, "'s "); found && base != "" {
		queries = append(queries, exactQuery(strings.TrimSpace(base)))
	}
	queries = append(queries, broadQuery(name))

	var print *Print
	for _, q := range queries {
		searchURL := fmt.Sprintf("%s/cards?%s", l.baseURL, q)
		body, err := l.client.Get(ctx, searchURL)
		if err != nil {
			logger.Warn("card lookup fetch failed", logger.Fields{"name": name, "error": err.Error()})
			continue
		}
		if print = parseSearchResult(body); print != nil {
			break
		}
	}

	if print != nil {
		print.Set = FixSetCode(print.Set)
		logger.IncrCounter("lookup.hits", 1)
	} else {
		logger.IncrCounter("lookup.misses", 1)
	}

	l.mu.Lock()
	l.cache[name] = print
	l.mu.Unlock()
	return print, nil
}

func exactQuery(name string) string {
	v := url.Values{}
	v.Set("q", fmt.Sprintf("lang:en name:%q", name))
	v.Set("show", "all")
	v.Set("display", "list")
	return v.Encode()
}

func broadQuery(name string) string {
	v := url.Values{}
	v.Set("q", "lang:en "+name)
	v.Set("show", "all")
	v.Set("display", "list")
	return v.Encode()
}

var setSpanPattern = regexp.MustCompile(`^([A-Z0-9-]+)\s+(\d+)$`)

// parseSearchResult pulls the first set/number pair out of a card search
// results page. Two layouts exist: card containers with data-set and
// data-number attributes, and a plain "SET 123" span.
func parseSearchResult(body string) *Print {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var print *Print
	doc.Find("div.card-list-card").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		set, okSet := sel.Attr("data-set")
		number, okNum := sel.Attr("data-number")
		if okSet && okNum && set != "" && number != "" {
			print = &Print{Set: strings.ToUpper(set), Number: number}
			return false
		}
		return true
	})
	if print != nil {
		return print
	}

	doc.Find("span.set").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if m := setSpanPattern.FindStringSubmatch(strings.TrimSpace(sel.Text())); m != nil {
			print = &Print{Set: strings.ToUpper(m[1]), Number: m[2]}
			return false
		}
		return true
	})
	return print
}
