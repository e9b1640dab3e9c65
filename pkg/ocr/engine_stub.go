//go:build !ocr

package ocr

import "context"

// Engine is the stub used when OCR support is not compiled in.
type Engine struct{}

// NewEngine returns ErrOCRNotEnabled.
func NewEngine(Options) (*Engine, error) {
	return nil, ErrOCRNotEnabled
}

func (e *Engine) Recognize(context.Context, []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// Close is safe to call on a nil engine.
func (e *Engine) Close() error {
	return nil
}
