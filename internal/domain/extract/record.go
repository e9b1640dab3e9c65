// Package extract holds the record model shared by the document-to-table
// extraction pipeline: price records, raw lines, scan state, tables and the
// per-dataset profiles that parameterize the classifier, scanner and
// markdown decoder.
package extract

import (
	"errors"
	"strings"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrCoercion          = errors.New("numeric coercion failed")
	ErrUnknownDataset    = errors.New("unknown dataset")
	ErrNoRecords         = errors.New("no records extracted")
)

// PriceRecord is one (year, category, value) observation. Value is a
// non-negative amount in won.
type PriceRecord struct {
	Year     int    `json:"year" csv:"year"`
	Category string `json:"category" csv:"category"`
	Value    int64  `json:"value" csv:"value"`
}

// Key identifies a record after normalization.
type Key struct {
	Year     int    `json:"year"`
	Category string `json:"category"`
}

func (r PriceRecord) Key() Key {
	return Key{Year: r.Year, Category: r.Category}
}

// RawLine is a single non-blank input line and its position in the source
// document.
type RawLine struct {
	Text    string
	Ordinal int
}

// Lines decodes text into trimmed, non-blank lines. Ordinals refer to the
// line number in the original text (0-based), so gaps mark removed blanks.
func Lines(text string) []RawLine {
	raw := strings.Split(text, "\n")
	lines := make([]RawLine, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, RawLine{Text: l, Ordinal: i})
	}
	return lines
}
