package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguages(t *testing.T) {
	assert.Equal(t, []string{"kor", "eng"}, ParseLanguages("kor+eng"))
	assert.Equal(t, []string{"kor"}, ParseLanguages(" kor + "))
	assert.Nil(t, ParseLanguages(""))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, []string{"kor", "eng"}, opts.Languages)
	assert.Equal(t, PSMSingleBlock, opts.PageSegMode)
}

func TestEngine_EmptyImage(t *testing.T) {
	e, err := NewEngine(DefaultOptions())
	if err != nil {
		assert.ErrorIs(t, err, ErrOCRNotEnabled)
		t.Skip("OCR support not compiled in")
	}
	defer e.Close()

	_, err = e.Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}
