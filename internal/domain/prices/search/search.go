// Package search indexes dataset categories (occupations, technician grades,
// concrete specs, cable sizes) for lookup from the API.
package search

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

// Document is one indexed category of one dataset.
type Document struct {
	ID       string `json:"id"`
	Dataset  string `json:"dataset"`
	Category string `json:"category"`
	Compact  string `json:"compact"` // category without spaces
	Years    []int  `json:"years"`
	Latest   int64  `json:"latest"` // value in the most recent year
}

// Result is a search hit with its relevance score.
type Result struct {
	Dataset  string  `json:"dataset"`
	Category string  `json:"category"`
	Years    []int   `json:"years"`
	Latest   int64   `json:"latest"`
	Score    float64 `json:"score"`
}

// Index wraps a Bleve index. Fuzzy subsequence matching over the indexed
// categories backs up the full-text query, which tokenizes Hangul labels
// as whole words.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex
	docs  map[string]Document
	path  string // empty for in-memory
}

// NewIndex creates an in-memory index when path is empty, otherwise creates
// or opens a persistent one.
func NewIndex(path string) (*Index, error) {
	var (
		index bleve.Index
		err   error
	)

	if path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, buildIndexMapping())
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &Index{index: index, docs: make(map[string]Document), path: path}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = simple.Name

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("dataset", keywordField)
	docMapping.AddFieldMappingsAt("category", textField)
	docMapping.AddFieldMappingsAt("compact", textField)
	docMapping.AddFieldMappingsAt("years", bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt("latest", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexTable replaces every document of the table's dataset.
func (ix *Index) IndexTable(t *extract.Table) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()
	for id, doc := range ix.docs {
		if doc.Dataset == t.Dataset {
			batch.Delete(id)
			delete(ix.docs, id)
		}
	}

	for _, category := range t.Categories() {
		series := t.Series(category)
		doc := Document{
			ID:       t.Dataset + "/" + category,
			Dataset:  t.Dataset,
			Category: category,
			Compact:  compact(category),
			Latest:   series[len(series)-1].Value,
		}
		for _, r := range series {
			doc.Years = append(doc.Years, r.Year)
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index %s: %w", doc.ID, err)
		}
		ix.docs[doc.ID] = doc
	}

	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search matches q against category labels, optionally restricted to one
// dataset. Full-text hits come first, fuzzy subsequence hits fill the rest.
func (ix *Index) Search(q, dataset string, limit int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q = strings.TrimSpace(q)
	if q == "" {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	match := bleve.NewMatchQuery(q)
	match.SetFuzziness(1)
	prefix := bleve.NewPrefixQuery(strings.ToLower(compact(q)))
	prefix.SetField("compact")
	var root query.Query = bleve.NewDisjunctionQuery(match, prefix)
	if dataset != "" {
		term := bleve.NewTermQuery(dataset)
		term.SetField("dataset")
		root = bleve.NewConjunctionQuery(root, term)
	}

	req := bleve.NewSearchRequest(root)
	req.Size = limit

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, limit)
	seen := make(map[string]bool, limit)
	for _, hit := range res.Hits {
		doc, ok := ix.docs[hit.ID]
		if !ok {
			continue
		}
		seen[hit.ID] = true
		results = append(results, toResult(doc, hit.Score))
	}

	if len(results) < limit {
		for _, doc := range ix.fuzzy(q, dataset) {
			if len(results) == limit {
				break
			}
			if seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true
			results = append(results, toResult(doc, 0))
		}
	}

	return results, nil
}

// Resolve maps a user-typed label to the indexed category it most likely
// means: exact match first, then the closest fuzzy match.
func (ix *Index) Resolve(dataset, label string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if doc, ok := ix.docs[dataset+"/"+label]; ok {
		return doc.Category, true
	}
	if docs := ix.fuzzy(label, dataset); len(docs) > 0 {
		return docs[0].Category, true
	}
	return "", false
}

// fuzzy ranks categories containing the characters of q in order, closest
// first. Callers hold the read lock.
func (ix *Index) fuzzy(q, dataset string) []Document {
	candidates := make([]Document, 0, len(ix.docs))
	targets := make([]string, 0, len(ix.docs))
	for _, doc := range ix.docs {
		if dataset != "" && doc.Dataset != dataset {
			continue
		}
		candidates = append(candidates, doc)
		targets = append(targets, doc.Compact)
	}

	ranks := fuzzy.RankFindFold(compact(q), targets)
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return strings.Compare(a.Target, b.Target)
	})

	out := make([]Document, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, candidates[r.OriginalIndex])
	}
	return out
}

// Clear removes all documents.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()
	for id := range ix.docs {
		batch.Delete(id)
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	ix.docs = make(map[string]Document)
	return nil
}

// DocumentCount returns the number of indexed categories.
func (ix *Index) DocumentCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.index != nil {
		return ix.index.Close()
	}
	return nil
}

func toResult(doc Document, score float64) Result {
	return Result{
		Dataset:  doc.Dataset,
		Category: doc.Category,
		Years:    doc.Years,
		Latest:   doc.Latest,
		Score:    score,
	}
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
