package card

import (
	"html"
	"strings"
)

// Card is one printing of a card in the catalog.
type Card struct {
	Name                string `json:"name"`
	Set                 string `json:"set"`
	Number              string `json:"number"`
	Type                string `json:"type,omitempty"`
	Rarity              string `json:"rarity,omitempty"`
	CardURL             string `json:"card_url,omitempty"`
	ImageURL            string `json:"image_url,omitempty"`
	InternationalPrints string `json:"international_prints,omitempty"`
	CardmarketURL       string `json:"cardmarket_url,omitempty"`
}

// Key identifies a printing within the catalog.
func (c Card) Key() string {
	return c.Name + "::" + c.Set + "::" + c.Number
}

// PriceKey joins set and number the way the price CSV keys its rows.
func (c Card) PriceKey() string {
	return c.Set + "_" + c.Number
}

// Category is the coarse card kind used when building deck archetypes and
// when deciding whether a decklist entry needs a set/number.
type Category int

const (
	CategoryPokemon Category = iota
	CategoryTrainer
	CategoryEnergy
)

func (c Category) String() string {
	switch c {
	case CategoryTrainer:
		return "Trainer"
	case CategoryEnergy:
		return "Energy"
	default:
		return "Pokemon"
	}
}

var trainerTypeWords = []string{"item", "supporter", "stadium", "tool", "ace spec", "acespec"}

var pokemonTypeWords = []string{"basic", "stage", "vmax", "vstar", "ex", "gx", "mega", "break"}

// CategoryOf maps a catalog type code (like "GBasic", "RStage1", "Item",
// "Supporter" or "" for basic energy) to a Category.
func CategoryOf(typeCode string) Category {
	if typeCode == "" {
		return CategoryEnergy
	}
	lower := strings.ToLower(typeCode)
	if strings.Contains(lower, "energy") {
		return CategoryEnergy
	}
	for _, w := range trainerTypeWords {
		if strings.Contains(lower, w) {
			return CategoryTrainer
		}
	}
	for _, w := range pokemonTypeWords {
		if strings.Contains(lower, w) {
			return CategoryPokemon
		}
	}
	// Pokémon type codes lead with an element letter.
	if strings.ContainsRune("GRWLPFCDMN", rune(typeCode[0])) {
		return CategoryPokemon
	}
	return CategoryPokemon
}

var apostropheVariants = strings.NewReplacer(
	"’", "'", // right single quote
	"‘", "'", // left single quote
	"`", "'",
	"´", "'", // acute accent
	"ʼ", "'", // modifier apostrophe
)

// CleanName decodes HTML entities and unifies the apostrophe variants the
// site mixes freely ("N's Zorua" appears with at least three of them).
func CleanName(name string) string {
	name = html.UnescapeString(strings.TrimSpace(name))
	return apostropheVariants.Replace(name)
}

var normalizeDrop = strings.NewReplacer(
	"é", "e", // é
	"'", "",
	"’", "",
	"-", "",
	".", "",
	"!", "",
	"♂", "", // ♂
	"♀", "", // ♀
)

// NormalizeName reduces a card name to the lookup key used by the index:
// lowercase, accents and punctuation stripped, spaces collapsed.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = normalizeDrop.Replace(n)
	return strings.Join(strings.Fields(n), " ")
}

// FixSetCode maps the promo set code Limitless shows on card pages to the
// one used everywhere else in the catalog.
func FixSetCode(code string) string {
	if code == "PR-SV" {
		return "SVP"
	}
	return code
}

// FixMegaName rewrites sprite-alt names like "gardevoir-mega" to the
// display form "Mega gardevoir".
func FixMegaName(name string) string {
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "-mega") {
		return name
	}
	base := strings.ReplaceAll(name, "-mega", "")
	base = strings.ReplaceAll(base, "-Mega", "")
	return "Mega " + strings.TrimSpace(base)
}
