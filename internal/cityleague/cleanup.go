package cityleague

import (
	"regexp"
	"strings"

	"github.com/phelbig/tcgdata/internal/card"
	"github.com/phelbig/tcgdata/internal/csvutil"
	"github.com/phelbig/tcgdata/internal/logger"
)

// trailingPrint matches a trailing "SET NUM" pair on a card name, e.g.
// "Ultra Ball SVI 196".
var trailingPrint = regexp.MustCompile(`\s([A-Z0-9]{2,})\s(\d+)$`)

// CleanCardNames rewrites a cards CSV in place, stripping the trailing set
// code and number from trainer and energy entries. Older runs wrote prints
// for every card before name-only output for non-Pokemon was introduced.
func CleanCardNames(path string, idx *card.Index) (int, error) {
	rows, err := csvutil.ReadAll(path, csvutil.ExcelOptions())
	if err != nil || rows == nil {
		return 0, err
	}

	cleaned := 0
	for _, row := range rows {
		full := row["full_card_name"]
		m := trailingPrint.FindStringIndex(full)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(full[:m[0]])
		if !idx.IsTrainerOrEnergy(name) {
			continue
		}
		row["full_card_name"] = name
		cleaned++
	}
	if cleaned == 0 {
		return 0, nil
	}

	w, err := csvutil.Create(path, cardsHeader, csvutil.ExcelOptions())
	if err != nil {
		return 0, err
	}
	defer w.Close()

	for _, row := range rows {
		if err := w.WriteMap(row); err != nil {
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	logger.Info("cleaned trainer and energy card names", logger.Fields{
		"file":    path,
		"cleaned": cleaned,
	})
	return cleaned, nil
}
