package extract

import (
	"slices"
)

// FieldNames names the dataset-specific role of each record field, e.g.
// year/position/salary for engineering labour rates.
type FieldNames struct {
	Year     string `json:"year"`
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Table is an ordered, read-only snapshot of one dataset.
type Table struct {
	Dataset string        `json:"dataset"`
	Title   string        `json:"title"`
	Fields  FieldNames    `json:"fields"`
	Records []PriceRecord `json:"records"`
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Years returns the distinct years in ascending order.
func (t *Table) Years() []int {
	if t == nil {
		return nil
	}
	years := make([]int, 0, 8)
	for _, r := range t.Records {
		if !slices.Contains(years, r.Year) {
			years = append(years, r.Year)
		}
	}
	slices.Sort(years)
	return years
}

// Categories returns the distinct categories in ascending order.
func (t *Table) Categories() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(t.Records))
	categories := make([]string, 0, len(t.Records))
	for _, r := range t.Records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		categories = append(categories, r.Category)
	}
	slices.Sort(categories)
	return categories
}

// Filter returns a copy holding only records whose year and category are
// selected. An empty selection matches everything.
func (t *Table) Filter(years []int, categories []string) *Table {
	out := &Table{
		Dataset: t.Dataset,
		Title:   t.Title,
		Fields:  t.Fields,
		Records: make([]PriceRecord, 0, len(t.Records)),
	}
	for _, r := range t.Records {
		if len(years) > 0 && !slices.Contains(years, r.Year) {
			continue
		}
		if len(categories) > 0 && !slices.Contains(categories, r.Category) {
			continue
		}
		out.Records = append(out.Records, r)
	}
	return out
}

// Series returns the records of one category ordered by year.
func (t *Table) Series(category string) []PriceRecord {
	series := t.Filter(nil, []string{category}).Records
	slices.SortStableFunc(series, func(a, b PriceRecord) int {
		return a.Year - b.Year
	})
	return series
}
