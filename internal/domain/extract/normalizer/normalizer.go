// Package normalizer turns the union of extracted records into a table:
// duplicates removed, key conflicts resolved, rows sorted by (year, category).
package normalizer

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

var ErrConflict = errors.New("conflicting values for the same year and category")

// Policy decides which record survives when the same (year, category)
// appears with different values.
type Policy int

const (
	LastWins Policy = iota
	FirstWins
	FailOnConflict
)

func (p Policy) String() string {
	switch p {
	case FirstWins:
		return "first_wins"
	case FailOnConflict:
		return "error"
	default:
		return "last_wins"
	}
}

// ParsePolicy accepts the names returned by String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_wins", "last":
		return LastWins, nil
	case "first_wins", "first":
		return FirstWins, nil
	case "error", "fail":
		return FailOnConflict, nil
	}
	return LastWins, fmt.Errorf("unknown conflict policy %q", s)
}

type Conflict struct {
	Key       extract.Key `json:"key"`
	Kept      int64       `json:"kept"`
	Discarded int64       `json:"discarded"`
}

type Result struct {
	Records    []extract.PriceRecord
	Duplicates int
	Conflicts  []Conflict
}

type Normalizer struct {
	policy Policy
	logger *slog.Logger
}

func New(policy Policy, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Normalizer{policy: policy, logger: logger}
}

// Normalize never adds records; missing years stay missing.
func (n *Normalizer) Normalize(records []extract.PriceRecord) (*Result, error) {
	result := &Result{Records: make([]extract.PriceRecord, 0, len(records))}
	index := make(map[extract.Key]int, len(records))

	for _, r := range records {
		pos, seen := index[r.Key()]
		if !seen {
			index[r.Key()] = len(result.Records)
			result.Records = append(result.Records, r)
			continue
		}

		existing := result.Records[pos]
		if existing.Value == r.Value {
			result.Duplicates++
			continue
		}

		conflict := Conflict{Key: r.Key(), Kept: r.Value, Discarded: existing.Value}
		switch n.policy {
		case FailOnConflict:
			return nil, fmt.Errorf("%w: %d %q has %d and %d", ErrConflict, r.Year, r.Category, existing.Value, r.Value)
		case FirstWins:
			conflict.Kept, conflict.Discarded = existing.Value, r.Value
		default:
			result.Records[pos] = r
		}
		result.Conflicts = append(result.Conflicts, conflict)

		n.logger.Warn("conflicting record values",
			slog.Int("year", r.Year),
			slog.String("category", r.Category),
			slog.Int64("kept", conflict.Kept),
			slog.Int64("discarded", conflict.Discarded),
			slog.String("policy", n.policy.String()),
		)
	}

	Sort(result.Records)
	return result, nil
}

// Sort orders records by year, then category. Equal keys keep their order.
func Sort(records []extract.PriceRecord) {
	slices.SortStableFunc(records, func(a, b extract.PriceRecord) int {
		return cmp.Or(
			cmp.Compare(a.Year, b.Year),
			strings.Compare(a.Category, b.Category),
		)
	})
}

// Normalize applies the last-wins policy without logging.
func Normalize(records []extract.PriceRecord) []extract.PriceRecord {
	res, _ := New(LastWins, nil).Normalize(records)
	return res.Records
}
