// Package trend computes price changes over the years of a dataset.
package trend

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/pkg/money"
)

// Reasons reported when a comparison cannot be computed.
const (
	ReasonTooFewPoints = "at least two years are needed for a comparison"
	ReasonSameYear     = "first and last points fall in the same year"
	ReasonZeroBase     = "the first value is zero"
)

// Point is one yearly value of a series.
type Point struct {
	Year  int   `json:"year"`
	Value int64 `json:"value"`
}

// Result compares the earliest and latest point of a series. When
// Computable is false only Reason is set.
type Result struct {
	Computable    bool            `json:"computable"`
	Reason        string          `json:"reason,omitempty"`
	FromYear      int             `json:"from_year,omitempty"`
	ToYear        int             `json:"to_year,omitempty"`
	FromValue     int64           `json:"from_value,omitempty"`
	ToValue       int64           `json:"to_value,omitempty"`
	Change        int64           `json:"change"`
	Years         int             `json:"years,omitempty"`
	TotalPercent  decimal.Decimal `json:"total_percent"`
	AnnualPercent decimal.Decimal `json:"annual_percent"`

	// Display amounts in won, e.g. "₩84,000".
	FromPrice   *money.Money `json:"from_price,omitempty"`
	ToPrice     *money.Money `json:"to_price,omitempty"`
	ChangePrice *money.Money `json:"change_price,omitempty"`
}

// Points converts records to points.
func Points(records []extract.PriceRecord) []Point {
	points := make([]Point, len(records))
	for i, r := range records {
		points[i] = Point{Year: r.Year, Value: r.Value}
	}
	return points
}

// Compute returns the total and compound annual change between the
// earliest and latest point. Gaps between them are ignored.
func Compute(points []Point) Result {
	if len(points) < 2 {
		return Result{Reason: ReasonTooFewPoints}
	}

	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int { return a.Year - b.Year })
	first, last := sorted[0], sorted[len(sorted)-1]

	years := last.Year - first.Year
	if years <= 0 {
		return Result{Reason: ReasonSameYear}
	}
	if first.Value == 0 {
		return Result{Reason: ReasonZeroBase}
	}

	from, to := money.Won(first.Value), money.Won(last.Value)
	diff, err := to.Subtract(from)
	if err != nil {
		return Result{Reason: err.Error()}
	}
	total, _ := to.PercentChange(from)

	ratio := float64(last.Value) / float64(first.Value)
	annual := decimal.NewFromFloat((math.Pow(ratio, 1/float64(years)) - 1) * 100)

	return Result{
		Computable:    true,
		FromYear:      first.Year,
		ToYear:        last.Year,
		FromValue:     first.Value,
		ToValue:       last.Value,
		Change:        diff.Amount(),
		Years:         years,
		TotalPercent:  total.Round(2),
		AnnualPercent: annual.Round(2),
		FromPrice:     from,
		ToPrice:       to,
		ChangePrice:   diff,
	}
}

// Change is the comparison of one category between two years.
type Change struct {
	Category  string          `json:"category"`
	FromValue int64           `json:"from_value"`
	ToValue   int64           `json:"to_value"`
	Change    int64           `json:"change"`
	Percent   decimal.Decimal `json:"percent"`
}

// Changes compares every category present in both years. Categories
// missing either year, or with a zero base, are skipped.
func Changes(t *extract.Table, from, to int) []Change {
	fromValues := make(map[string]int64)
	toValues := make(map[string]int64)
	for _, r := range t.Records {
		switch r.Year {
		case from:
			fromValues[r.Category] = r.Value
		case to:
			toValues[r.Category] = r.Value
		}
	}

	changes := make([]Change, 0, len(fromValues))
	for _, category := range t.Categories() {
		a, okA := fromValues[category]
		b, okB := toValues[category]
		if !okA || !okB || a == 0 {
			continue
		}
		changes = append(changes, Change{
			Category:  category,
			FromValue: a,
			ToValue:   b,
			Change:    b - a,
			Percent:   percent(a, b),
		})
	}
	return changes
}

func percent(from, to int64) decimal.Decimal {
	p, _ := money.Won(to).PercentChange(money.Won(from))
	return p.Round(2)
}
