package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/search"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/trend"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrSearchDisabled   = errors.New("search index not configured")
	ErrInvalidQuery     = errors.New("invalid query")
)

// Query selects records by year and category. Empty fields select all.
type Query struct {
	Years      []int
	Categories []string
}

// DatasetSummary describes a loaded dataset.
type DatasetSummary struct {
	Dataset    string             `json:"dataset"`
	Title      string             `json:"title"`
	Fields     extract.FieldNames `json:"fields"`
	Records    int                `json:"records"`
	Years      []int              `json:"years"`
	Categories int                `json:"categories"`
}

// TrendResult is a price comparison for one category.
type TrendResult struct {
	Dataset  string        `json:"dataset"`
	Category string        `json:"category"`
	Points   []trend.Point `json:"points"`
	trend.Result
}

// Summaries loads and describes every dataset.
func (s *PriceService) Summaries(ctx context.Context) ([]DatasetSummary, error) {
	out := make([]DatasetSummary, 0, len(s.profiles))
	for _, name := range s.Datasets() {
		t, err := s.Table(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, DatasetSummary{
			Dataset:    t.Dataset,
			Title:      t.Title,
			Fields:     t.Fields,
			Records:    t.Len(),
			Years:      t.Years(),
			Categories: len(t.Categories()),
		})
	}
	return out, nil
}

// Records returns the selected records of a dataset as a new table.
func (s *PriceService) Records(ctx context.Context, dataset string, q Query) (*extract.Table, error) {
	t, err := s.Table(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return t.Filter(q.Years, q.Categories), nil
}

func (s *PriceService) Years(ctx context.Context, dataset string) ([]int, error) {
	t, err := s.Table(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return t.Years(), nil
}

func (s *PriceService) Categories(ctx context.Context, dataset string) ([]string, error) {
	t, err := s.Table(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return t.Categories(), nil
}

// ResolveCategory maps a label to a category of the dataset. Exact labels
// win; otherwise the search index picks the closest one.
func (s *PriceService) ResolveCategory(ctx context.Context, dataset, label string) (string, error) {
	t, err := s.Table(ctx, dataset)
	if err != nil {
		return "", err
	}
	if slices.Contains(t.Categories(), label) {
		return label, nil
	}
	if s.index != nil {
		if c, ok := s.index.Resolve(t.Dataset, label); ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrCategoryNotFound, label)
}

// Trend compares the first and last selected year of a category. Fewer
// than two points is reported as not computable, not as an error.
func (s *PriceService) Trend(ctx context.Context, dataset, category string, years []int) (*TrendResult, error) {
	resolved, err := s.ResolveCategory(ctx, dataset, category)
	if err != nil {
		return nil, err
	}
	t, err := s.Table(ctx, dataset)
	if err != nil {
		return nil, err
	}

	series := t.Series(resolved)
	if len(years) > 0 {
		series = slices.DeleteFunc(series, func(r extract.PriceRecord) bool {
			return !slices.Contains(years, r.Year)
		})
	}

	points := trend.Points(series)
	res := trend.Compute(points)
	if !res.Computable {
		s.logger.Debug("trend not computable",
			slog.String("dataset", t.Dataset),
			slog.String("category", resolved),
			slog.String("reason", res.Reason),
		)
	}

	return &TrendResult{
		Dataset:  t.Dataset,
		Category: resolved,
		Points:   points,
		Result:   res,
	}, nil
}

// Changes compares every category between two years.
func (s *PriceService) Changes(ctx context.Context, dataset string, from, to int) ([]trend.Change, error) {
	if from >= to {
		return nil, fmt.Errorf("%w: from year %d must be before to year %d", ErrInvalidQuery, from, to)
	}
	t, err := s.Table(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return trend.Changes(t, from, to), nil
}

// Search finds categories by label across all datasets, or one when
// dataset is set. Datasets are loaded first so the index is populated.
func (s *PriceService) Search(ctx context.Context, q, dataset string, limit int) ([]search.Result, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}

	if dataset != "" {
		p, err := s.profile(dataset)
		if err != nil {
			return nil, err
		}
		dataset = p.Dataset
		if _, err := s.Table(ctx, dataset); err != nil {
			return nil, err
		}
	} else if err := s.Warm(ctx); err != nil {
		s.logger.Warn("some datasets failed to load before search", slog.Any("error", err))
	}

	return s.index.Search(q, dataset, limit)
}
