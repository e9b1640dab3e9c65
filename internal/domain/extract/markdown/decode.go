package markdown

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

// CoercionError reports a cell that should hold an integer but does not.
// It fails the whole load.
type CoercionError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("row %d, column %s: cannot convert %q to an integer", e.Row, e.Column, e.Value)
}

func (e *CoercionError) Unwrap() error { return e.Err }

func (e *CoercionError) Is(target error) bool { return target == extract.ErrCoercion }

var yearHeader = regexp.MustCompile(`^(\d{4})\s*년?$`)

// Load parses r and decodes it with the profile.
func Load(r io.Reader, profile extract.Profile) (*Document, []extract.PriceRecord, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, nil, err
	}
	records, err := Decode(doc, profile)
	if err != nil {
		return doc, nil, err
	}
	return doc, records, nil
}

// Decode maps rows to records. Headers that are bare years make the table
// wide (one record per non-empty year cell); otherwise year, category and
// value columns are found by name.
func Decode(doc *Document, profile extract.Profile) ([]extract.PriceRecord, error) {
	var years []yearColumn
	for _, h := range doc.Header {
		if m := yearHeader.FindStringSubmatch(h); m != nil {
			y, _ := strconv.Atoi(m[1])
			years = append(years, yearColumn{header: h, year: y})
		}
	}
	if len(years) > 0 {
		return decodeWide(doc, profile, years)
	}
	return decodeLong(doc, profile)
}

type yearColumn struct {
	header string
	year   int
}

func decodeLong(doc *Document, profile extract.Profile) ([]extract.PriceRecord, error) {
	yearCol, err := column(doc.Header, profile.Fields.Year, profile.Columns.Year)
	if err != nil {
		return nil, err
	}
	categoryCol, err := column(doc.Header, profile.Fields.Category, profile.Columns.Category)
	if err != nil {
		return nil, err
	}
	valueCol, err := column(doc.Header, profile.Fields.Value, profile.Columns.Value)
	if err != nil {
		return nil, err
	}
	detailCol, _ := column(doc.Header, "", profile.Columns.Detail)

	records := make([]extract.PriceRecord, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		year, err := coerce(row, yearCol)
		if err != nil {
			return nil, err
		}
		value, err := coerce(row, valueCol)
		if err != nil {
			return nil, err
		}
		records = append(records, extract.PriceRecord{
			Year:     int(year),
			Category: label(row, detailCol, categoryCol),
			Value:    value,
		})
	}
	return records, nil
}

func decodeWide(doc *Document, profile extract.Profile, years []yearColumn) ([]extract.PriceRecord, error) {
	categoryCol, catErr := column(doc.Header, profile.Fields.Category, profile.Columns.Category)
	detailCol, _ := column(doc.Header, "", profile.Columns.Detail)
	if catErr != nil && detailCol == "" {
		return nil, catErr
	}

	records := make([]extract.PriceRecord, 0, len(doc.Rows)*len(years))
	for _, row := range doc.Rows {
		category := label(row, detailCol, categoryCol)
		for _, yc := range years {
			if strings.TrimSpace(row.Values[yc.header]) == "" {
				continue
			}
			value, err := coerce(row, yc.header)
			if err != nil {
				return nil, err
			}
			records = append(records, extract.PriceRecord{Year: yc.year, Category: category, Value: value})
		}
	}
	return records, nil
}

// column returns the header matching the field name or one of its aliases.
func column(header []string, field string, aliases []string) (string, error) {
	names := make([]string, 0, len(aliases)+1)
	for _, name := range append([]string{field}, aliases...) {
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	for _, name := range names {
		for _, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return h, nil
			}
		}
	}
	if field == "" {
		return "", ErrMissingColumn
	}
	return "", fmt.Errorf("%w: %s (accepted: %s)", ErrMissingColumn, field, strings.Join(names, ", "))
}

func label(row Row, detailCol, categoryCol string) string {
	parts := make([]string, 0, 2)
	if detailCol != "" {
		if v := strings.TrimSpace(row.Values[detailCol]); v != "" {
			parts = append(parts, v)
		}
	}
	if categoryCol != "" {
		if v := strings.TrimSpace(row.Values[categoryCol]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// coerce reads an integer cell, accepting thousands separators and the
// 년/원 unit suffixes. Negative amounts are rejected.
func coerce(row Row, col string) (int64, error) {
	raw := row.Values[col]
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "년")
	s = strings.TrimSuffix(s, "원")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &CoercionError{Row: row.Line, Column: col, Value: raw, Err: err}
	}
	if v < 0 {
		return 0, &CoercionError{Row: row.Line, Column: col, Value: raw, Err: fmt.Errorf("negative amount")}
	}
	return v, nil
}
