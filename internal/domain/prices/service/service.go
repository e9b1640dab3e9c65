// Package service builds and serves the unit price tables: it reads each
// dataset's source documents, runs them through the extraction pipeline,
// caches the normalized result and answers queries over it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/markdown"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/normalizer"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/scanner"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/search"
	"github.com/FACorreiaa/unit-price-tracker/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/service"

// Where a loaded table came from.
const (
	OriginMarkdown = "markdown"
	OriginFallback = "fallback"
	OriginSeed     = "seed"
	OriginNone     = "none"
)

// Source names the files a dataset is read from, relative to the storage
// root. Seeds are hand-entered rows merged into every load.
type Source struct {
	Markdown string
	Fallback string
	Seeds    []string
}

// Recognizer turns a page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// PriceService orchestrates loading, caching and querying of datasets.
type PriceService struct {
	store    storage.Storage
	sources  map[string]Source
	profiles map[string]extract.Profile
	scanners map[string]*scanner.Scanner
	cache    *tableCache

	policy     normalizer.Policy
	workers    int
	index      *search.Index // Optional: nil disables search and fuzzy lookup
	recognizer Recognizer    // Optional: nil rejects image documents
	metrics    *Metrics      // Optional

	tracer trace.Tracer
	logger *slog.Logger
}

// NewPriceService creates a service for the built-in dataset profiles.
// Datasets missing from sources load as empty tables.
func NewPriceService(store storage.Storage, sources map[string]Source, logger *slog.Logger) (*PriceService, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &PriceService{
		store:    store,
		sources:  sources,
		profiles: make(map[string]extract.Profile),
		scanners: make(map[string]*scanner.Scanner),
		cache:    newTableCache(),
		policy:   normalizer.LastWins,
		workers:  4,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}

	for _, p := range extract.Builtin() {
		sc, err := scanner.New(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build scanner for %s: %w", p.Dataset, err)
		}
		s.profiles[p.Dataset] = p
		s.scanners[p.Dataset] = sc
	}

	logger.Debug("price service configured", slog.Any("sources", sortedKeys(sources)))
	return s, nil
}

// WithSearchIndex enables category search and fuzzy category lookup
func (s *PriceService) WithSearchIndex(index *search.Index) *PriceService {
	s.index = index
	return s
}

// WithRecognizer enables extraction from page images
func (s *PriceService) WithRecognizer(r Recognizer) *PriceService {
	s.recognizer = r
	return s
}

// WithMetrics records loads, cache use and extraction runs
func (s *PriceService) WithMetrics(m *Metrics) *PriceService {
	s.metrics = m
	return s
}

// WithConflictPolicy sets how same-key records with different values are
// resolved
func (s *PriceService) WithConflictPolicy(p normalizer.Policy) *PriceService {
	s.policy = p
	return s
}

// WithWorkers bounds how many documents one extraction run scans at once
func (s *PriceService) WithWorkers(n int) *PriceService {
	if n > 0 {
		s.workers = n
	}
	return s
}

// Datasets returns the dataset names in display order.
func (s *PriceService) Datasets() []string {
	names := make([]string, 0, len(s.profiles))
	for _, p := range extract.Builtin() {
		names = append(names, p.Dataset)
	}
	return names
}

func (s *PriceService) profile(dataset string) (extract.Profile, error) {
	p, err := extract.Lookup(dataset)
	if err != nil {
		return extract.Profile{}, err
	}
	return s.profiles[p.Dataset], nil
}

// Table returns the normalized table of a dataset, loading it on first
// use. A dataset whose sources are all unavailable yields an empty table.
// A source with a non-numeric amount fails the load.
func (s *PriceService) Table(ctx context.Context, dataset string) (*extract.Table, error) {
	p, err := s.profile(dataset)
	if err != nil {
		return nil, err
	}

	src := s.sources[p.Dataset]
	t, hit, err := s.cache.load(cacheKey(p.Dataset, src), func() (*extract.Table, error) {
		return s.load(ctx, p, src)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		s.metrics.cacheHit(p.Dataset)
	} else {
		s.metrics.cacheMiss(p.Dataset)
	}
	return t, nil
}

// Warm loads every dataset into the cache.
func (s *PriceService) Warm(ctx context.Context) error {
	var errs []error
	for _, name := range s.Datasets() {
		if _, err := s.Table(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ClearCache drops cached tables for one dataset, or all when dataset is
// empty, and returns the number of entries removed.
func (s *PriceService) ClearCache(dataset string) (int, error) {
	if dataset != "" {
		p, err := s.profile(dataset)
		if err != nil {
			return 0, err
		}
		dataset = p.Dataset
	}
	n := s.cache.clear(dataset)
	s.logger.Info("table cache cleared", slog.String("dataset", dataset), slog.Int("entries", n))
	return n, nil
}

// Refresh clears the cache and loads every dataset again.
func (s *PriceService) Refresh(ctx context.Context) error {
	s.cache.clear("")
	return s.Warm(ctx)
}

func (s *PriceService) load(ctx context.Context, p extract.Profile, src Source) (*extract.Table, error) {
	ctx, span := s.tracer.Start(ctx, "prices.load", trace.WithAttributes(attribute.String("dataset", p.Dataset)))
	defer span.End()

	start := time.Now()
	logger := s.logger.With(slog.String("dataset", p.Dataset))

	var (
		records []extract.PriceRecord
		title   = p.Title
		origin  = OriginNone
	)

	for _, seed := range src.Seeds {
		_, recs, err := s.readMarkdown(ctx, seed, p)
		if err != nil {
			if unavailable(err) {
				logger.Warn("seed source skipped", slog.String("file", seed), slog.Any("error", err))
				continue
			}
			return nil, s.fail(span, fmt.Errorf("seed %s: %w", seed, err))
		}
		records = append(records, recs...)
		origin = OriginSeed
	}

	primary := false
	if src.Markdown != "" {
		doc, recs, err := s.readMarkdown(ctx, src.Markdown, p)
		switch {
		case err == nil:
			primary = true
			records = append(records, recs...)
			origin = OriginMarkdown
			if doc.Title != "" {
				title = doc.Title
			}
			if doc.Dropped > 0 {
				logger.Warn("malformed rows dropped", slog.String("file", src.Markdown), slog.Int("rows", doc.Dropped))
			}
		case errors.Is(err, markdown.ErrMissingColumn):
			logger.Warn("markdown source unreadable", slog.String("file", src.Markdown), slog.Any("error", err))
		case unavailable(err):
			logger.Info("markdown source unavailable", slog.String("file", src.Markdown), slog.Any("error", err))
		default:
			return nil, s.fail(span, fmt.Errorf("%s: %w", src.Markdown, err))
		}
	}

	if !primary && src.Fallback != "" {
		recs, err := s.readFallback(ctx, src.Fallback, p)
		if err != nil {
			logger.Warn("fallback source unavailable", slog.String("file", src.Fallback), slog.Any("error", err))
		} else {
			records = append(records, recs...)
			origin = OriginFallback
		}
	}

	res, err := normalizer.New(s.policy, logger).Normalize(records)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.conflict(p.Dataset, len(res.Conflicts))

	t := &extract.Table{
		Dataset: p.Dataset,
		Title:   title,
		Fields:  p.Fields,
		Records: res.Records,
	}

	if s.index != nil {
		if err := s.index.IndexTable(t); err != nil {
			logger.Warn("failed to index categories", slog.Any("error", err))
		}
	}

	elapsed := time.Since(start)
	s.metrics.observeLoad(p.Dataset, origin, elapsed.Seconds(), t.Len())
	span.SetAttributes(attribute.String("origin", origin), attribute.Int("records", t.Len()))
	logger.Info("dataset loaded",
		slog.String("origin", origin),
		slog.Int("records", t.Len()),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("conflicts", len(res.Conflicts)),
		slog.Duration("elapsed", elapsed),
	)

	return t, nil
}

func (s *PriceService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *PriceService) open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, _, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", extract.ErrSourceUnavailable, err)
	}
	return rc, nil
}

func (s *PriceService) readMarkdown(ctx context.Context, name string, p extract.Profile) (*markdown.Document, []extract.PriceRecord, error) {
	rc, err := s.open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()
	return markdown.Load(rc, p)
}

// legacyDocument is the JSON fallback: one free-text field holding the OCR
// output of the whole report.
type legacyDocument struct {
	Text string `json:"text"`
}

func (s *PriceService) readFallback(ctx context.Context, name string, p extract.Profile) ([]extract.PriceRecord, error) {
	rc, err := s.open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", extract.ErrSourceUnavailable, err)
	}
	text, err := legacyText(data)
	if err != nil {
		return nil, err
	}
	return s.scanners[p.Dataset].ScanText(text), nil
}

func legacyText(data []byte) (string, error) {
	var doc legacyDocument
	if err := json.Unmarshal(extract.StripBOM(data), &doc); err != nil {
		return "", fmt.Errorf("invalid legacy document: %w", err)
	}
	return extract.Decode([]byte(doc.Text)), nil
}

// unavailable reports errors that mean "try the next source".
func unavailable(err error) bool {
	return errors.Is(err, extract.ErrSourceUnavailable) ||
		errors.Is(err, markdown.ErrNoTable) ||
		errors.Is(err, markdown.ErrMissingColumn)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
