package extract

// Phase is the scanner state derived from which context fields are set.
type Phase int

const (
	NoContext Phase = iota
	HasYear
	HasYearAndCategory
)

func (p Phase) String() string {
	switch p {
	case HasYear:
		return "has_year"
	case HasYearAndCategory:
		return "has_year_and_category"
	default:
		return "no_context"
	}
}

// ScanState is the context carried across lines of one document. It is a
// value: every transition returns a new state and the zero value is the
// initial state.
type ScanState struct {
	Year     *int
	Category *string
}

func (s ScanState) Phase() Phase {
	switch {
	case s.Year != nil && s.Category != nil:
		return HasYearAndCategory
	case s.Year != nil:
		return HasYear
	default:
		return NoContext
	}
}

func (s ScanState) WithYear(year int) ScanState {
	s.Year = &year
	return s
}

func (s ScanState) WithCategory(category string) ScanState {
	s.Category = &category
	return s
}

// WithoutCategory drops the current category, keeping the year.
func (s ScanState) WithoutCategory() ScanState {
	s.Category = nil
	return s
}
