// Package markdown reads pipe-delimited markdown tables into price records
// and writes them back out.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

var (
	ErrNoTable       = errors.New("no markdown table found")
	ErrMissingColumn = errors.New("required column missing")
)

// Meta is the optional YAML front matter of a source file.
type Meta struct {
	Dataset string `yaml:"dataset" toml:"dataset" json:"dataset"`
	Title   string `yaml:"title" toml:"title" json:"title"`
	Unit    string `yaml:"unit" toml:"unit" json:"unit"`
	Source  string `yaml:"source" toml:"source" json:"source"`
}

// Row is one data row zipped against the header.
type Row struct {
	Line   int // 1-based line number in the file, front matter excluded
	Values map[string]string
}

// Document is a parsed markdown source.
type Document struct {
	Meta    Meta
	Title   string
	Header  []string
	Rows    []Row
	Dropped int // data rows whose cell count differs from the header
}

var dividerCell = regexp.MustCompile(`^:?-+:?$`)

// Parse locates the first pipe table in r. Rows with the wrong number of
// cells are dropped and counted.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}

	doc := &Document{}

	// The BOM has to go before anything looks at the first line, otherwise
	// the first header cell carries it.
	src := []byte(extract.Decode(data))
	body, err := frontmatter.Parse(bytes.NewReader(src), &doc.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "|") && strings.Contains(t[1:], "|") {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, ErrNoTable
	}

	doc.Title = heading(lines[:start])
	if doc.Title == "" {
		doc.Title = doc.Meta.Title
	}
	doc.Header = splitRow(lines[start])

	next := start + 1
	if next < len(lines) && isDivider(splitRow(lines[next])) {
		next++
	}

	// Only the first table is read: once rows have started, the first
	// line that is not a table row ends it.
	for i := next; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(t, "|") {
			if len(doc.Rows) > 0 || doc.Dropped > 0 {
				break
			}
			continue
		}
		cells := splitRow(t)
		if len(cells) != len(doc.Header) {
			doc.Dropped++
			continue
		}
		values := make(map[string]string, len(cells))
		for k, h := range doc.Header {
			values[h] = cells[k]
		}
		doc.Rows = append(doc.Rows, Row{Line: i + 1, Values: values})
	}

	return doc, nil
}

// splitRow splits a table line on pipes, dropping the empty cells produced
// by the leading and trailing pipe.
func splitRow(line string) []string {
	t := strings.TrimSpace(line)
	parts := strings.Split(t, "|")
	if strings.HasPrefix(t, "|") {
		parts = parts[1:]
	}
	if strings.HasSuffix(t, "|") && len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isDivider(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !dividerCell.MatchString(strings.ReplaceAll(c, " ", "")) {
			return false
		}
	}
	return true
}

// heading returns the text of the first heading above the table.
func heading(preambleLines []string) string {
	preamble := []byte(strings.Join(preambleLines, "\n"))
	if len(bytes.TrimSpace(preamble)) == 0 {
		return ""
	}

	root := goldmark.New().Parser().Parse(text.NewReader(preamble))
	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(string(h.Text(preamble)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}
