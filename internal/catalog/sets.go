package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
)

// BaseURL is the card catalog site.
const BaseURL = "https://limitlesstcg.com"

// Set is one row of the set list, newest first. Order counts up from the
// oldest set so a higher number always means a newer set.
type Set struct {
	Code        string `json:"set_code"`
	Name        string `json:"set_name"`
	ReleaseDate string `json:"release_date"`
	CardCount   string `json:"card_count"`
	Order       int    `json:"order"`
}

// Scraper fetches and parses the catalog pages.
type Scraper struct {
	client  *fetch.Client
	baseURL string
}

func New(client *fetch.Client) *Scraper {
	return &Scraper{client: client, baseURL: BaseURL}
}

// SetBaseURL points the scraper at a different host, for tests.
func (s *Scraper) SetBaseURL(base string) { s.baseURL = base }

// FetchSets downloads the full set table.
func (s *Scraper) FetchSets(ctx context.Context) ([]Set, error) {
	doc, err := s.setsPage(ctx)
	if err != nil {
		return nil, err
	}

	rows := doc.Find("table tbody tr")
	total := rows.Length()
	var sets []Set
	rows.Each(func(idx int, row *goquery.Selection) {
		set, ok := parseSetRow(row)
		if !ok {
			return
		}
		set.Order = total - idx
		sets = append(sets, set)
	})
	if len(sets) == 0 {
		return nil, fmt.Errorf("no set rows found")
	}

	logger.Info("fetched set list", logger.Fields{"sets": len(sets)})
	return sets, nil
}

// NewestSet reads only the first table row, for the cheap up-to-date check.
func (s *Scraper) NewestSet(ctx context.Context) (Set, error) {
	doc, err := s.setsPage(ctx)
	if err != nil {
		return Set{}, err
	}
	set, ok := parseSetRow(doc.Find("table tbody tr").First())
	if !ok {
		return Set{}, fmt.Errorf("no set rows found")
	}
	return set, nil
}

func (s *Scraper) setsPage(ctx context.Context) (*goquery.Document, error) {
	body, err := s.client.Get(ctx, s.baseURL+"/cards")
	if err != nil {
		return nil, fmt.Errorf("fetching set list: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func parseSetRow(row *goquery.Selection) (Set, bool) {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return Set{}, false
	}

	nameCell := cells.Eq(0)
	fullName := strings.TrimSpace(nameCell.Find("a").First().Text())
	code := strings.TrimSpace(nameCell.Find("div.text-xs.text-gray-500").First().Text())
	if code == "" {
		code = leadingCapitals(fullName)
	}
	if code == "" || fullName == "" {
		return Set{}, false
	}

	return Set{
		Code:        code,
		Name:        strings.TrimSpace(strings.Replace(fullName, code, "", 1)),
		ReleaseDate: strings.TrimSpace(cells.Eq(1).Text()),
		CardCount:   strings.TrimSpace(cells.Eq(2).Text()),
	}, true
}

// leadingCapitals recovers a set code from a name like "ASCAscended Heroes"
// where the code and name render as one string.
func leadingCapitals(name string) string {
	var code []rune
	for _, r := range name {
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			code = append(code, r)
			continue
		}
		if len(code) > 0 {
			break
		}
	}
	// The last capital belongs to the set name proper.
	if len(code) > 1 {
		code = code[:len(code)-1]
	}
	return string(code)
}

var setsHeader = []string{"set_code", "set_name", "release_date", "card_count", "order"}

// WriteSets writes the set list CSV, newest first.
func WriteSets(path string, sets []Set) error {
	w, err := csvutil.Create(path, setsHeader, csvutil.Options{})
	if err != nil {
		return err
	}
	defer w.Close()

	for _, set := range sets {
		err := w.Write([]string{
			set.Code, set.Name, set.ReleaseDate, set.CardCount, strconv.Itoa(set.Order),
		})
		if err != nil {
			return fmt.Errorf("writing set row: %w", err)
		}
	}
	return w.Close()
}

// LoadSets reads the stored set list. A missing file yields nil.
func LoadSets(path string) ([]Set, error) {
	rows, err := csvutil.ReadAll(path, csvutil.Options{})
	if err != nil || rows == nil {
		return nil, err
	}

	sets := make([]Set, 0, len(rows))
	for _, row := range rows {
		sets = append(sets, Set{
			Code:        row["set_code"],
			Name:        row["set_name"],
			ReleaseDate: row["release_date"],
			CardCount:   row["card_count"],
			Order:       csvutil.ParseInt(row["order"]),
		})
	}
	return sets, nil
}

// megaCodes are early Mega-era sets whose names don't carry the era word.
var megaCodes = map[string]bool{"ASC": true, "PFL": true, "MEG": true, "MEE": true, "MEP": true}

// eraOf buckets a set into its era for the generated order mapping.
func eraOf(set Set) string {
	name := set.Name
	switch {
	case strings.Contains(name, "Mega") || megaCodes[set.Code]:
		return "Mega"
	case containsAny(name, "Scarlet", "Violet", "Prismatic", "Surging", "Stellar"):
		return "Scarlet & Violet"
	case containsAny(name, "Sword", "Shield", "Crown", "Silver", "Lost"):
		return "Sword & Shield"
	case containsAny(name, "Sun", "Moon", "Cosmic", "Hidden", "Unified"):
		return "Sun & Moon"
	case strings.HasPrefix(name, "XY") || containsAny(name, "Evolution", "Steam"):
		return "XY"
	case containsAny(name, "Black", "White", "Plasma"):
		return "Black & White"
	case containsAny(name, "HeartGold", "SoulSilver", "Call of Legends"):
		return "HeartGold & SoulSilver"
	case containsAny(name, "Diamond", "Pearl", "Platinum"):
		return "Diamond & Pearl"
	default:
		return "Classic"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// WriteSetOrderJS generates the SET_ORDER JavaScript mapping consumed by
// downstream visualizations, grouped by era for readability.
func WriteSetOrderJS(path string, sets []Set) error {
	sorted := make([]Set, len(sets))
	copy(sorted, sets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order > sorted[j].Order })

	var b strings.Builder
	b.WriteString("// Pokemon TCG Set Order Mapping\n")
	fmt.Fprintf(&b, "// Auto-generated from Limitless TCG on %s\n", time.Now().Format("2006-01-02 15:04"))
	b.WriteString("// Higher number = newer set\n\nconst SET_ORDER = {\n")

	currentEra := ""
	for _, set := range sorted {
		if era := eraOf(set); era != currentEra {
			if currentEra != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "    // %s\n", era)
			currentEra = era
		}
		fmt.Fprintf(&b, "    '%s': %d,  // %s\n", set.Code, set.Order, set.Name)
	}
	b.WriteString("};\n")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
