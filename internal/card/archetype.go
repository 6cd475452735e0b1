package card

import (
	"regexp"
	"strings"
)

// Words that keep a fixed casing when a deck slug is turned back into a
// readable archetype name.
var upperWords = map[string]bool{
	"ex": true, "gx": true, "v": true, "vmax": true, "vstar": true,
}

var multiDash = regexp.MustCompile(`-+`)

// SlugToArchetype converts a deck URL slug into a readable archetype name:
// "mega-gardevoir-ex" becomes "Mega Gardevoir EX".
func SlugToArchetype(slug string) string {
	slug = strings.ReplaceAll(strings.TrimSpace(slug), "_", "-")
	slug = multiDash.ReplaceAllString(slug, " ")

	words := strings.Fields(slug)
	for i, w := range words {
		if upperWords[strings.ToLower(w)] {
			words[i] = strings.ToUpper(w)
		} else {
			words[i] = titleCase(w)
		}
	}
	return strings.Join(words, " ")
}

// DeckSlug converts an archetype name to the URL slug used by
// play.limitlesstcg.com: possessives dropped, lowercase, hyphenated.
// "N's Zoroark" becomes "n-zoroark".
func DeckSlug(name string) string {
	name = strings.ReplaceAll(name, "'s", "")
	name = strings.ReplaceAll(name, "'", "")
	name = strings.ReplaceAll(strings.ToLower(name), "é", "e")
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
}

func titleCase(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}
