// Package ocr recognizes text on scanned report pages with Tesseract.
//
// The engine is only compiled in with the "ocr" build tag, which needs the
// Tesseract and Leptonica development libraries:
//
//	apt-get install tesseract-ocr tesseract-ocr-kor libtesseract-dev
//	go build -tags ocr ./...
//
// Without the tag every constructor returns ErrOCRNotEnabled.
package ocr

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrOCRNotEnabled     = errors.New("OCR support not enabled; rebuild with -tags ocr")
	ErrRecognitionFailed = errors.New("text recognition failed")
	ErrEmptyImage        = errors.New("empty image")
)

// PageSegMode mirrors Tesseract's page segmentation modes.
type PageSegMode int

const (
	PSMAuto        PageSegMode = 3  // Fully automatic page segmentation
	PSMSingleBlock PageSegMode = 6  // Single uniform block of text
	PSMSparseText  PageSegMode = 11 // Find as much text as possible
)

// Options configures recognition. Report tables print one row per line, so
// a single text block keeps labels and amounts in reading order.
type Options struct {
	Languages   []string
	PageSegMode PageSegMode
}

// DefaultOptions recognizes Korean and English as a single text block.
func DefaultOptions() Options {
	return Options{
		Languages:   []string{"kor", "eng"},
		PageSegMode: PSMSingleBlock,
	}
}

// ParseLanguages accepts Tesseract's "kor+eng" notation.
func ParseLanguages(s string) []string {
	var langs []string
	for _, l := range strings.Split(s, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

func (m PageSegMode) String() string {
	return "psm " + strconv.Itoa(int(m))
}
