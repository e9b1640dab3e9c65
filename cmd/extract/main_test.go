package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/service"
)

func writePages(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	pages := map[string]string{
		"page1.txt": "2023년 건설업 임금실태\n보통인부\n150,000원\n철근공\n230,000원\n",
		"page2.txt": "2024년\n보통인부\n161,000원\n",
		"scan.pdf":  "%PDF-1.7",
	}
	for name, content := range pages {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestRun_WritesCSV(t *testing.T) {
	dir := writePages(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{
		"-dataset", "construction", "-dir", dir, "-out", "wage.csv", "page1.txt", "page2.txt",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	data, err := os.ReadFile(filepath.Join(dir, "wage.csv"))
	require.NoError(t, err)
	assert.Equal(t, "year,occupation,wage\n2023,보통인부,150000\n2023,철근공,230000\n2024,보통인부,161000\n", string(data))
	assert.Contains(t, stderr.String(), "2 documents, 3 records")
	assert.Empty(t, stdout.String())
}

func TestRun_MarkdownToStdout(t *testing.T) {
	dir := writePages(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-dataset", "construction", "-dir", dir, "page2.txt"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.NotContains(t, stdout.String(), "# ")
	assert.Contains(t, stdout.String(), "보통인부")
	assert.Contains(t, stdout.String(), "161000")
}

func TestRun_Errors(t *testing.T) {
	dir := writePages(t)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"missing inputs", []string{"-dataset", "construction"}, nil},
		{"pdf", []string{"-dataset", "construction", "-dir", dir, "scan.pdf"}, service.ErrPDFNotSupported},
		{"bad format", []string{"-dataset", "construction", "-dir", dir, "-format", "docx", "page1.txt"}, service.ErrUnsupportedFormat},
		{"bad policy", []string{"-dataset", "construction", "-policy", "newest", "page1.txt"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		format, out, want string
	}{
		{"", "-", service.FormatMarkdown},
		{"", "cable_data.md", service.FormatMarkdown},
		{"", "wage.CSV", service.FormatCSV},
		{"", "wage.xlsx", service.FormatXLSX},
		{"excel", "wage.md", service.FormatXLSX},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.format, tt.out)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.out)
	}
}
