//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps one Tesseract client. Tesseract clients are not safe for
// concurrent use, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates an engine. Close it to release the Tesseract handle.
func NewEngine(opts Options) (*Engine, error) {
	client := gosseract.NewClient()

	if len(opts.Languages) > 0 {
		if err := client.SetLanguage(opts.Languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}
	if opts.PageSegMode != 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}

	return &Engine{client: client}, nil
}

// Recognize returns the text on an encoded image (PNG, JPEG, TIFF...).
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("%w: failed to set image: %w", ErrRecognitionFailed, err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the Tesseract handle.
func (e *Engine) Close() error {
	if e == nil || e.client == nil {
		return nil
	}
	return e.client.Close()
}
