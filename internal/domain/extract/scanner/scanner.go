// Package scanner walks the lines of one document in order and associates
// amounts with the year and category context seen before them.
//
// The scan is a fold: Step takes the current ScanState and returns the next
// one, so a Scanner holds no per-document state and one instance can scan
// many documents concurrently.
package scanner

import (
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/classifier"
)

type Scanner struct {
	profile    extract.Profile
	classifier *classifier.Classifier
}

// New builds a scanner and its classifier for a profile.
func New(profile extract.Profile) (*Scanner, error) {
	c, err := classifier.New(profile)
	if err != nil {
		return nil, err
	}
	return &Scanner{profile: profile, classifier: c}, nil
}

// NewWithClassifier reuses an existing classifier.
func NewWithClassifier(c *classifier.Classifier) *Scanner {
	return &Scanner{profile: c.Profile(), classifier: c}
}

// ScanText splits text into lines and scans them.
func (s *Scanner) ScanText(text string) []extract.PriceRecord {
	return s.Scan(extract.Lines(text))
}

// Scan runs Step over every line starting from the empty state.
func (s *Scanner) Scan(lines []extract.RawLine) []extract.PriceRecord {
	var (
		state   extract.ScanState
		records []extract.PriceRecord
		emitted []extract.PriceRecord
	)
	for i := 0; i < len(lines); {
		state, i, emitted = s.Step(state, lines, i)
		records = append(records, emitted...)
	}
	return records
}

// Step consumes the line at index i and returns the next state, the index
// of the next unconsumed line and any records emitted.
func (s *Scanner) Step(state extract.ScanState, lines []extract.RawLine, i int) (extract.ScanState, int, []extract.PriceRecord) {
	res := s.classifier.Classify(lines[i].Text)

	switch res.Kind {
	case classifier.KindYear:
		return state.WithYear(res.Year), i + 1, nil

	case classifier.KindCategory:
		// Labels seen before any year have nothing to attach to, except in
		// wide layouts where the years come from the value columns.
		if state.Year == nil && !s.profile.Wide() {
			return state, i + 1, nil
		}
		return s.lookahead(state.WithCategory(res.Category), lines, i)

	case classifier.KindValue:
		if state.Phase() == extract.HasYearAndCategory {
			return state, i + 1, s.emit(state, res)
		}
	}

	return state, i + 1, nil
}

// lookahead searches the window after a category line for its amount. A
// category without an amount in the window is dropped.
func (s *Scanner) lookahead(state extract.ScanState, lines []extract.RawLine, i int) (extract.ScanState, int, []extract.PriceRecord) {
	last := min(i+s.profile.Window, len(lines)-1)
	for j := i + 1; j <= last; j++ {
		ahead := s.classifier.Classify(lines[j].Text)
		switch ahead.Kind {
		case classifier.KindYear, classifier.KindCategory:
			return state.WithoutCategory(), j, nil
		case classifier.KindValue:
			return state, j + 1, s.emit(state, ahead)
		}
	}
	return state.WithoutCategory(), i + 1, nil
}

func (s *Scanner) emit(state extract.ScanState, res classifier.Result) []extract.PriceRecord {
	if state.Category == nil {
		return nil
	}
	category := *state.Category

	if len(res.Values) > 0 {
		var records []extract.PriceRecord
		for k, year := range s.profile.ValueYears {
			if k >= len(res.Values) {
				break
			}
			if res.Values[k] > 0 {
				records = append(records, extract.PriceRecord{Year: year, Category: category, Value: res.Values[k]})
			}
		}
		return records
	}

	if state.Year == nil || res.Value <= 0 {
		return nil
	}
	return []extract.PriceRecord{{Year: *state.Year, Category: category, Value: res.Value}}
}
