package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/markdown"
	"github.com/FACorreiaa/unit-price-tracker/pkg/ocr"
)

var (
	ErrPDFNotSupported     = errors.New("pdf documents must be rendered to page images first")
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// How a document was turned into records.
const (
	MethodMarkdown = "markdown"
	MethodText     = "text"
	MethodLegacy   = "legacy_json"
	MethodOCR      = "ocr"
)

// Document is one input of an extraction run.
type Document struct {
	Name string
	Data []byte
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// DocumentMethod returns how a document will be read, based on its name.
func DocumentMethod(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".md" || ext == ".markdown":
		return MethodMarkdown, nil
	case ext == ".txt" || ext == "":
		return MethodText, nil
	case ext == ".json":
		return MethodLegacy, nil
	case ext == ".pdf":
		return "", ErrPDFNotSupported
	case imageExtensions[ext]:
		return MethodOCR, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, ext)
}

// readDocument extracts the records of one document without normalizing
// them. Markdown without a table is scanned as plain text.
func (s *PriceService) readDocument(ctx context.Context, p extract.Profile, doc Document) ([]extract.PriceRecord, string, error) {
	method, err := DocumentMethod(doc.Name)
	if err != nil {
		return nil, "", err
	}

	sc := s.scanners[p.Dataset]

	switch method {
	case MethodMarkdown:
		_, records, err := markdown.Load(bytes.NewReader(doc.Data), p)
		if errors.Is(err, markdown.ErrNoTable) {
			return sc.ScanText(extract.Decode(doc.Data)), MethodText, nil
		}
		return records, method, err

	case MethodLegacy:
		text, err := legacyText(doc.Data)
		if err != nil {
			return nil, method, err
		}
		return sc.ScanText(text), method, nil

	case MethodOCR:
		if s.recognizer == nil {
			return nil, method, ocr.ErrOCRNotEnabled
		}
		text, err := s.recognizer.Recognize(ctx, doc.Data)
		if err != nil {
			return nil, method, err
		}
		return sc.ScanText(extract.Decode([]byte(text))), method, nil
	}

	return sc.ScanText(extract.Decode(doc.Data)), method, nil
}
