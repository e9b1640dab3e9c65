// Command extract turns OCR text, page images and markdown tables into one
// normalized price table:
//
//	extract -dataset engineering -out engineering_salary_ocr.md page1.png page2.txt
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/markdown"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/normalizer"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/service"
	"github.com/FACorreiaa/unit-price-tracker/pkg/config"
	"github.com/FACorreiaa/unit-price-tracker/pkg/ocr"
	"github.com/FACorreiaa/unit-price-tracker/pkg/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataset := fs.String("dataset", "", "Dataset profile: cable, concrete, engineering or construction")
	out := fs.String("out", "-", "Output file, or - for stdout")
	format := fs.String("format", "", "Output format: md, csv or xlsx (defaults to the output extension)")
	dir := fs.String("dir", ".", "Directory relative input and output paths resolve against")
	policy := fs.String("policy", cfg.Data.ConflictPolicy, "Conflict policy: last_wins, first_wins or error")
	workers := fs.Int("workers", cfg.Data.Workers, "Documents scanned concurrently")
	verbose := fs.Bool("v", false, "Log every document and conflict")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: extract -dataset NAME [-out FILE] [-format md|csv|xlsx] FILE...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataset == "" || fs.NArg() == 0 {
		fs.Usage()
		return errors.New("a dataset and at least one input file are required")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	conflicts, err := normalizer.ParsePolicy(*policy)
	if err != nil {
		return err
	}

	outFormat, err := outputFormat(*format, *out)
	if err != nil {
		return err
	}

	store, err := storage.NewLocalStorage(*dir)
	if err != nil {
		return err
	}

	svc, err := service.NewPriceService(store, nil, logger)
	if err != nil {
		return err
	}
	svc.WithConflictPolicy(conflicts).WithWorkers(*workers)

	engine, err := ocr.NewEngine(ocr.Options{
		Languages:   ocr.ParseLanguages(cfg.OCR.Languages),
		PageSegMode: ocr.PageSegMode(cfg.OCR.PageSegMode),
	})
	switch {
	case errors.Is(err, ocr.ErrOCRNotEnabled):
		// image inputs fail with ErrOCRNotEnabled
	case err != nil:
		return err
	default:
		defer engine.Close()
		svc.WithRecognizer(engine)
	}

	res, err := svc.ExtractFiles(ctx, *dataset, fs.Args())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := render(&buf, res.Table, outFormat); err != nil {
		return err
	}

	if *out == "-" {
		_, err = buf.WriteTo(stdout)
		return err
	}
	info, err := store.Write(ctx, *out, &buf)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "run %s: %d documents, %d records, %d duplicates, %d conflicts -> %s (%d bytes)\n",
		res.RunID, len(res.Documents), res.Table.Len(), res.Duplicates, len(res.Conflicts), info.Path, info.Size)
	return nil
}

// render writes markdown with a title heading only for the cable
// dataset, whose report pages carry one.
func render(w io.Writer, t *extract.Table, format string) error {
	if format == service.FormatMarkdown {
		return markdown.Render(w, t, t.Dataset == "cable")
	}
	return service.WriteTable(w, t, format)
}

func outputFormat(format, out string) (string, error) {
	if format != "" {
		return service.ParseFormat(format)
	}
	if out == "-" {
		return service.FormatMarkdown, nil
	}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
		return service.FormatCSV, nil
	case ".xlsx":
		return service.FormatXLSX, nil
	}
	return service.FormatMarkdown, nil
}
