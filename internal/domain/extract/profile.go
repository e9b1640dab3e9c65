package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Dataset names.
const (
	Cable        = "cable"
	Concrete     = "concrete"
	Engineering  = "engineering"
	Construction = "construction"
)

// Columns lists accepted header names (aliases) for each field of a
// markdown table. Detail columns are prefixed to the category label, e.g.
// the product name in front of a cable size.
type Columns struct {
	Year     []string
	Category []string
	Value    []string
	Detail   []string
}

// Profile configures the generic extractor for one dataset.
type Profile struct {
	Dataset string
	Title   string
	Fields  FieldNames
	Columns Columns

	YearPattern      *regexp.Regexp
	Keywords         []string
	CategoryPatterns []*regexp.Regexp
	ValuePattern     *regexp.Regexp

	// Window is how many lines after a category marker are searched for its
	// value.
	Window int

	// ValueYears switches the scanner to wide mode: one value line carries
	// an amount per year, in this order.
	ValueYears []int
	MinValues  int
}

// Wide reports whether values are laid out one column per year.
func (p Profile) Wide() bool {
	return len(p.ValueYears) > 0
}

func (p Profile) Validate() error {
	switch {
	case p.Dataset == "":
		return fmt.Errorf("profile: dataset is required")
	case p.YearPattern == nil:
		return fmt.Errorf("profile %s: year pattern is required", p.Dataset)
	case p.ValuePattern == nil:
		return fmt.Errorf("profile %s: value pattern is required", p.Dataset)
	case len(p.Keywords) == 0 && len(p.CategoryPatterns) == 0:
		return fmt.Errorf("profile %s: category keywords or patterns are required", p.Dataset)
	case p.Window < 1 || p.Window > 3:
		return fmt.Errorf("profile %s: lookahead window must be between 1 and 3, got %d", p.Dataset, p.Window)
	case p.Wide() && p.MinValues < 1:
		return fmt.Errorf("profile %s: wide profiles need a minimum value count", p.Dataset)
	}
	return nil
}

var (
	YearMarker = regexp.MustCompile(`(\d{4})\s*년`)

	// WonAmount requires the currency unit, as labour-rate tables print it.
	WonAmount = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+)\s*원`)

	// PriceAmount accepts a grouped amount or at least four digits, with an
	// optional unit, so page numbers are not read as prices.
	PriceAmount = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d{4,})\s*(?:원)?`)

	// AnyNumber matches every number on a wide value line.
	AnyNumber = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d+`)

	CableSize    = regexp.MustCompile(`(?i)(\d+(\.\d+)?)\s*[x×]\s*(\d+(\.\d+)?)(sq)?\s*mm`)
	SquareSize   = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*SQ\b`)
	ConcreteSpec = regexp.MustCompile(`(BB|WC)-\d+\s*\(#\d+\)`)
)

var occupations = []string{
	"보통인부", "특별인부", "작업반장", "비계공", "형틀목공", "철근공", "용접공", "절단공",
	"콘크리트공", "방수공", "미장공", "조적공", "견출공", "도장공", "배관공", "전공",
}

// Builtin returns the four dataset profiles in display order.
func Builtin() []Profile {
	return []Profile{
		{
			Dataset: Engineering,
			Title:   "엔지니어링 노임단가",
			Fields:  FieldNames{Year: "year", Category: "position", Value: "salary"},
			Columns: Columns{
				Year:     []string{"year", "연도"},
				Category: []string{"position", "직위", "기술자등급"},
				Value:    []string{"salary", "금액", "노임단가"},
			},
			YearPattern:  YearMarker,
			Keywords:     []string{"기술자"},
			ValuePattern: WonAmount,
			Window:       1,
		},
		{
			Dataset: Construction,
			Title:   "건설업 임금실태",
			Fields:  FieldNames{Year: "year", Category: "occupation", Value: "wage"},
			Columns: Columns{
				Year:     []string{"year", "연도"},
				Category: []string{"occupation", "직종"},
				Value:    []string{"wage", "임금"},
			},
			YearPattern:  YearMarker,
			Keywords:     slices.Clone(occupations),
			ValuePattern: WonAmount,
			Window:       1,
		},
		{
			Dataset: Concrete,
			Title:   "토목자재 - 아스팔트 콘크리트",
			Fields:  FieldNames{Year: "year", Category: "spec", Value: "price"},
			Columns: Columns{
				Year:     []string{"year", "연도"},
				Category: []string{"spec", "규격"},
				Value:    []string{"price", "가격"},
			},
			YearPattern:      YearMarker,
			Keywords:         []string{"BB-", "WC-"},
			CategoryPatterns: []*regexp.Regexp{ConcreteSpec},
			ValuePattern:     PriceAmount,
			Window:           2,
		},
		{
			Dataset: Cable,
			Title:   "전기 케이블 가격 데이터",
			Fields:  FieldNames{Year: "year", Category: "size", Value: "price"},
			Columns: Columns{
				Year:     []string{"year", "연도"},
				Category: []string{"size", "규격"},
				Value:    []string{"price", "가격", "단가"},
				Detail:   []string{"brand", "품명"},
			},
			YearPattern:      YearMarker,
			Keywords:         []string{"F-CV", "HIV", "CVV", "한국", "케이블", "전력", "제어용", "가교", "연선", "동선"},
			CategoryPatterns: []*regexp.Regexp{CableSize, SquareSize},
			ValuePattern:     PriceAmount,
			Window:           3,
			ValueYears:       []int{2021, 2022, 2023, 2024},
			MinValues:        2,
		},
	}
}

// Lookup returns the built-in profile for a dataset name.
func Lookup(dataset string) (Profile, error) {
	name := strings.ToLower(strings.TrimSpace(dataset))
	for _, p := range Builtin() {
		if p.Dataset == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
}
