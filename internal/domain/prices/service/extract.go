package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/normalizer"
)

// DocumentReport summarizes one document of an extraction run.
type DocumentReport struct {
	Name    string `json:"name"`
	Method  string `json:"method"`
	Records int    `json:"records"`
}

// ExtractResult is the outcome of one extraction run.
type ExtractResult struct {
	RunID      uuid.UUID             `json:"run_id"`
	Table      *extract.Table        `json:"table"`
	Documents  []DocumentReport      `json:"documents"`
	Duplicates int                   `json:"duplicates"`
	Conflicts  []normalizer.Conflict `json:"conflicts,omitempty"`
	Elapsed    time.Duration         `json:"elapsed"`
}

// Extract builds a table from documents supplied by the caller. Documents
// are scanned concurrently, each from an empty state; their records are
// merged in input order and normalized once.
func (s *PriceService) Extract(ctx context.Context, dataset string, docs []Document) (*ExtractResult, error) {
	p, err := s.profile(dataset)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	ctx, span := s.tracer.Start(ctx, "prices.extract", trace.WithAttributes(
		attribute.String("dataset", p.Dataset),
		attribute.String("run_id", runID.String()),
		attribute.Int("documents", len(docs)),
	))
	defer span.End()

	start := time.Now()
	logger := s.logger.With(slog.String("dataset", p.Dataset), slog.String("run_id", runID.String()))

	perDoc := make([][]extract.PriceRecord, len(docs))
	reports := make([]DocumentReport, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, method, err := s.readDocument(gctx, p, doc)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name, err)
			}
			perDoc[i] = records
			reports[i] = DocumentReport{Name: doc.Name, Method: method, Records: len(records)}
			s.metrics.document(p.Dataset, method)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(span, err)
	}

	var merged []extract.PriceRecord
	for _, records := range perDoc {
		merged = append(merged, records...)
	}
	if len(merged) == 0 {
		return nil, s.fail(span, extract.ErrNoRecords)
	}

	res, err := normalizer.New(s.policy, logger).Normalize(merged)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.conflict(p.Dataset, len(res.Conflicts))

	result := &ExtractResult{
		RunID: runID,
		Table: &extract.Table{
			Dataset: p.Dataset,
			Title:   p.Title,
			Fields:  p.Fields,
			Records: res.Records,
		},
		Documents:  reports,
		Duplicates: res.Duplicates,
		Conflicts:  res.Conflicts,
		Elapsed:    time.Since(start),
	}

	logger.Info("extraction finished",
		slog.Int("documents", len(docs)),
		slog.Int("records", result.Table.Len()),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("conflicts", len(res.Conflicts)),
		slog.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// ExtractFiles reads the named files from storage and extracts them.
func (s *PriceService) ExtractFiles(ctx context.Context, dataset string, names []string) (*ExtractResult, error) {
	docs := make([]Document, 0, len(names))
	for _, name := range names {
		if _, err := DocumentMethod(name); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		rc, err := s.open(ctx, name)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		docs = append(docs, Document{Name: name, Data: data})
	}
	return s.Extract(ctx, dataset, docs)
}
