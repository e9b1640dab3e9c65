package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/markdown"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Export formats.
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "md"
)

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// ParseFormat normalizes a format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "md", "markdown", "":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Export writes the selected records of a dataset in the given format.
func (s *PriceService) Export(ctx context.Context, w io.Writer, dataset, format string, q Query) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}
	t, err := s.Records(ctx, dataset, q)
	if err != nil {
		return err
	}
	return WriteTable(w, t, format)
}

// WriteTable renders a table in one of the export formats.
func WriteTable(w io.Writer, t *extract.Table, format string) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, t)
	case FormatXLSX:
		return writeXLSX(w, t)
	case FormatMarkdown:
		return markdown.Render(w, t, true)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// writeCSV uses the dataset's field names as the header row.
func writeCSV(w io.Writer, t *extract.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{t.Fields.Year, t.Fields.Category, t.Fields.Value}); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if len(t.Records) == 0 {
		return nil
	}
	return gocsv.MarshalWithoutHeaders(t.Records, w)
}

func writeXLSX(w io.Writer, t *extract.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Dataset
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{t.Fields.Year, t.Fields.Category, t.Fields.Value}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range t.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Year, r.Category, r.Value}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if t.Len() > 0 {
		numFmt := "#,##0"
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", t.Len()+1), style); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}
