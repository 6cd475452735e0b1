package card

import (
	"fmt"

	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/logger"
)

// Index is the in-memory card type index built from the scraped catalog
// CSVs. Decklist parsing uses it to reject non-card rows (tournament titles
// leak into the markup) and to classify entries as Pokémon, Trainer or
// Energy without keyword guessing.
type Index struct {
	types map[string]string // normalized name -> type code
}

// LoadIndex builds an index from the English catalog CSV and any number of
// extra CSVs (the Japanese catalog). Later files never overwrite earlier
// entries, so the English typing wins.
func LoadIndex(paths ...string) (*Index, error) {
	idx := &Index{types: make(map[string]string)}
	loaded := 0
	for _, path := range paths {
		rows, err := csvutil.ReadAll(path, csvutil.Options{})
		if err != nil {
			return nil, fmt.Errorf("loading card database: %w", err)
		}
		if rows == nil {
			logger.Warn("card database missing", logger.Fields{"path": path})
			continue
		}
		for _, row := range rows {
			name := row["name"]
			if name == "" {
				continue
			}
			key := NormalizeName(name)
			if _, exists := idx.types[key]; !exists {
				idx.types[key] = row["type"]
			}
		}
		loaded++
	}
	logger.Info("card index loaded", logger.Fields{
		"files": loaded,
		"cards": len(idx.types),
	})
	return idx, nil
}

// NewIndex builds an index directly from cards, for tests and for callers
// that already hold a catalog in memory.
func NewIndex(cards []Card) *Index {
	idx := &Index{types: make(map[string]string, len(cards))}
	for _, c := range cards {
		key := NormalizeName(c.Name)
		if _, exists := idx.types[key]; !exists {
			idx.types[key] = c.Type
		}
	}
	return idx
}

// Size reports the number of distinct card names in the index.
func (idx *Index) Size() int {
	return len(idx.types)
}

// IsValidName reports whether name matches a known card. An empty index
// accepts everything, so the scrapers keep working before the catalog has
// been scraped for the first time.
func (idx *Index) IsValidName(name string) bool {
	if len(idx.types) == 0 {
		return true
	}
	_, ok := idx.types[NormalizeName(name)]
	return ok
}

// CategoryFor returns the category of a known card and whether it was found.
func (idx *Index) CategoryFor(name string) (Category, bool) {
	typeCode, ok := idx.types[NormalizeName(name)]
	if !ok {
		return CategoryPokemon, false
	}
	return CategoryOf(typeCode), true
}

// IsTrainerOrEnergy reports whether a known card is a Trainer or Energy.
// Unknown names count as Pokémon, the safe default for decklist handling.
func (idx *Index) IsTrainerOrEnergy(name string) bool {
	cat, ok := idx.CategoryFor(name)
	return ok && cat != CategoryPokemon
}
