// Package handler exposes the price datasets over HTTP.
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/markdown"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/normalizer"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/search"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/service"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/trend"
	"github.com/FACorreiaa/unit-price-tracker/pkg/ocr"
	"github.com/FACorreiaa/unit-price-tracker/pkg/router"
)

const (
	maxUploadBytes = 32 << 20
	maxDocuments   = 50
)

// PriceService is the part of service.PriceService the handler uses.
type PriceService interface {
	Summaries(ctx context.Context) ([]service.DatasetSummary, error)
	Records(ctx context.Context, dataset string, q service.Query) (*extract.Table, error)
	Years(ctx context.Context, dataset string) ([]int, error)
	Categories(ctx context.Context, dataset string) ([]string, error)
	Trend(ctx context.Context, dataset, category string, years []int) (*service.TrendResult, error)
	Changes(ctx context.Context, dataset string, from, to int) ([]trend.Change, error)
	Export(ctx context.Context, w io.Writer, dataset, format string, q service.Query) error
	Search(ctx context.Context, q, dataset string, limit int) ([]search.Result, error)
	ClearCache(dataset string) (int, error)
	Extract(ctx context.Context, dataset string, docs []service.Document) (*service.ExtractResult, error)
}

// PriceHandler serves the dataset endpoints.
type PriceHandler struct {
	svc PriceService
	r   *router.Router
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(svc PriceService) *PriceHandler {
	return &PriceHandler{svc: svc}
}

// Register mounts the API routes on r.
func (h *PriceHandler) Register(r *router.Router) {
	h.r = r

	r.GET("/api/v1/datasets", h.ListDatasets)
	r.GET("/api/v1/datasets/:dataset/records", h.GetRecords)
	r.GET("/api/v1/datasets/:dataset/categories", h.GetCategories)
	r.GET("/api/v1/datasets/:dataset/years", h.GetYears)
	r.GET("/api/v1/datasets/:dataset/trend", h.GetTrend)
	r.GET("/api/v1/datasets/:dataset/changes", h.GetChanges)
	r.Handle(http.MethodGet, "/api/v1/datasets/:dataset/export", http.HandlerFunc(h.Export))
	r.POST("/api/v1/datasets/:dataset/extract", h.Extract)
	r.GET("/api/v1/search", h.Search)
	r.POST("/api/v1/cache/clear", h.ClearCache)
}

type recordsResponse struct {
	*extract.Table
	count int
}

func (r recordsResponse) Meta() map[string]any {
	return map[string]any{"count": r.count}
}

// ListDatasets returns a summary of every dataset.
func (h *PriceHandler) ListDatasets(ctx context.Context, _ *http.Request) (any, error) {
	summaries, err := h.svc.Summaries(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return summaries, nil
}

// GetRecords returns a dataset's records, optionally filtered by year and
// category.
func (h *PriceHandler) GetRecords(ctx context.Context, r *http.Request) (any, error) {
	q, err := parseQuery(r)
	if err != nil {
		return nil, err
	}
	t, err := h.svc.Records(ctx, router.Param(ctx, "dataset"), q)
	if err != nil {
		return nil, mapError(err)
	}
	return recordsResponse{Table: t, count: t.Len()}, nil
}

func (h *PriceHandler) GetCategories(ctx context.Context, _ *http.Request) (any, error) {
	categories, err := h.svc.Categories(ctx, router.Param(ctx, "dataset"))
	if err != nil {
		return nil, mapError(err)
	}
	return categories, nil
}

func (h *PriceHandler) GetYears(ctx context.Context, _ *http.Request) (any, error) {
	years, err := h.svc.Years(ctx, router.Param(ctx, "dataset"))
	if err != nil {
		return nil, mapError(err)
	}
	return years, nil
}

// GetTrend compares the first and last selected year of one category.
func (h *PriceHandler) GetTrend(ctx context.Context, r *http.Request) (any, error) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		return nil, router.BadRequest("category is required", nil)
	}
	years, err := parseYears(r.URL.Query()["year"])
	if err != nil {
		return nil, err
	}
	res, err := h.svc.Trend(ctx, router.Param(ctx, "dataset"), category, years)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// GetChanges compares every category between two years.
func (h *PriceHandler) GetChanges(ctx context.Context, r *http.Request) (any, error) {
	from, err := parseYear(r.URL.Query().Get("from"), "from")
	if err != nil {
		return nil, err
	}
	to, err := parseYear(r.URL.Query().Get("to"), "to")
	if err != nil {
		return nil, err
	}
	changes, err := h.svc.Changes(ctx, router.Param(ctx, "dataset"), from, to)
	if err != nil {
		return nil, mapError(err)
	}
	return changes, nil
}

// Export streams a dataset as csv, xlsx or markdown. The document is
// buffered so a failure can still be reported as JSON.
func (h *PriceHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dataset := router.Param(ctx, "dataset")

	format, err := service.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.r.WriteError(ctx, w, mapError(err))
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		h.r.WriteError(ctx, w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export(ctx, &buf, dataset, format, q); err != nil {
		h.r.WriteError(ctx, w, mapError(err))
		return
	}

	w.Header().Set("Content-Type", service.ContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": dataset + "." + format,
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type extractResponse struct {
	*service.ExtractResult
}

func (extractResponse) StatusCode() int { return http.StatusCreated }

// Extract builds a table from uploaded documents. Every multipart part
// with a file name is one document.
func (h *PriceHandler) Extract(ctx context.Context, r *http.Request) (any, error) {
	docs, err := readDocuments(r)
	if err != nil {
		return nil, err
	}
	res, err := h.svc.Extract(ctx, router.Param(ctx, "dataset"), docs)
	if err != nil {
		return nil, mapError(err)
	}
	return extractResponse{res}, nil
}

// Search finds categories across datasets.
func (h *PriceHandler) Search(ctx context.Context, r *http.Request) (any, error) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	if q == "" {
		return nil, router.BadRequest("q is required", nil)
	}

	limit := 0
	if s := params.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, router.BadRequest("limit must be a positive integer", err)
		}
		limit = n
	}

	results, err := h.svc.Search(ctx, q, params.Get("dataset"), limit)
	if err != nil {
		return nil, mapError(err)
	}
	return results, nil
}

type clearResponse struct {
	Dataset string `json:"dataset,omitempty"`
	Cleared int    `json:"cleared"`
}

// ClearCache drops cached tables, for one dataset or all of them.
func (h *PriceHandler) ClearCache(_ context.Context, r *http.Request) (any, error) {
	dataset := r.URL.Query().Get("dataset")
	n, err := h.svc.ClearCache(dataset)
	if err != nil {
		return nil, mapError(err)
	}
	return clearResponse{Dataset: dataset, Cleared: n}, nil
}

func parseQuery(r *http.Request) (service.Query, error) {
	params := r.URL.Query()
	years, err := parseYears(params["year"])
	if err != nil {
		return service.Query{}, err
	}
	return service.Query{Years: years, Categories: splitList(params["category"])}, nil
}

// parseYears accepts repeated and comma separated values.
func parseYears(values []string) ([]int, error) {
	var years []int
	for _, v := range splitList(values) {
		y, err := parseYear(v, "year")
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, nil
}

func parseYear(s, name string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 1900 || y > 2100 {
		return 0, router.BadRequest(fmt.Sprintf("%s must be a year, got %q", name, s), err)
	}
	return y, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func readDocuments(r *http.Request) ([]service.Document, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.EqualFold(mediaType, "multipart/form-data") {
		return nil, router.BadRequest("expected multipart/form-data", err)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, router.BadRequest("invalid multipart body", err)
	}

	var (
		docs  []service.Document
		total int64
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, router.BadRequest("invalid multipart body", err)
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if len(docs) == maxDocuments {
			_ = part.Close()
			return nil, router.BadRequest(fmt.Sprintf("at most %d documents per request", maxDocuments), nil)
		}

		data, err := io.ReadAll(io.LimitReader(part, maxUploadBytes-total+1))
		_ = part.Close()
		if err != nil {
			return nil, router.BadRequest("failed to read upload", err)
		}
		total += int64(len(data))
		if total > maxUploadBytes {
			return nil, router.NewError(http.StatusRequestEntityTooLarge, "upload too large", nil)
		}
		docs = append(docs, service.Document{Name: part.FileName(), Data: data})
	}

	if len(docs) == 0 {
		return nil, router.BadRequest("at least one file is required", nil)
	}
	return docs, nil
}

// mapError translates service errors into HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, extract.ErrUnknownDataset):
		return router.NotFound("unknown dataset", err)
	case errors.Is(err, service.ErrCategoryNotFound):
		return router.NotFound("category not found", err)
	case errors.Is(err, service.ErrInvalidQuery),
		errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, service.ErrPDFNotSupported),
		errors.Is(err, service.ErrUnsupportedDocument),
		errors.Is(err, ocr.ErrEmptyImage):
		return router.BadRequest(err.Error(), err)
	case errors.Is(err, extract.ErrCoercion),
		errors.Is(err, extract.ErrNoRecords),
		errors.Is(err, markdown.ErrMissingColumn),
		errors.Is(err, normalizer.ErrConflict),
		errors.Is(err, ocr.ErrRecognitionFailed):
		return router.Unprocessable(err.Error(), err)
	case errors.Is(err, service.ErrSearchDisabled):
		return router.ServiceUnavailable("search is not enabled", err)
	case errors.Is(err, ocr.ErrOCRNotEnabled):
		return router.NewError(http.StatusNotImplemented, "OCR is not enabled on this server", err)
	}
	return err
}
