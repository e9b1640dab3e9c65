package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

func mustNew(t *testing.T, dataset string) *Scanner {
	t.Helper()
	p, err := extract.Lookup(dataset)
	require.NoError(t, err)
	s, err := New(p)
	require.NoError(t, err)
	return s
}

func scan(s *Scanner, lines ...string) []extract.PriceRecord {
	return s.ScanText(strings.Join(lines, "\n"))
}

func TestScan_CategoryFollowedByValue(t *testing.T) {
	s := mustNew(t, extract.Cable)

	records := scan(s, "2021년", "10SQ", "1,000원")
	assert.Equal(t, []extract.PriceRecord{{Year: 2021, Category: "10SQ", Value: 1000}}, records)
}

func TestScan_DanglingCategory(t *testing.T) {
	s := mustNew(t, extract.Cable)

	assert.Empty(t, scan(s, "2021년", "10SQ"))
}

func TestScan_Long(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		lines   []string
		want    []extract.PriceRecord
	}{
		{
			name:    "state persists across records",
			dataset: extract.Construction,
			lines:   []string{"2023년", "보통인부", "150,000원", "철근공", "230,000원"},
			want: []extract.PriceRecord{
				{Year: 2023, Category: "보통인부", Value: 150000},
				{Year: 2023, Category: "철근공", Value: 230000},
			},
		},
		{
			name:    "new year replaces the old one",
			dataset: extract.Engineering,
			lines:   []string{"2023년", "특급기술자", "400,000원", "2024년", "특급기술자", "423,000원"},
			want: []extract.PriceRecord{
				{Year: 2023, Category: "특급기술자", Value: 400000},
				{Year: 2024, Category: "특급기술자", Value: 423000},
			},
		},
		{
			name:    "value inside the window",
			dataset: extract.Concrete,
			lines:   []string{"2025년", "BB-3(#57) 중층용", "단위: 톤", "84,000"},
			want:    []extract.PriceRecord{{Year: 2025, Category: "BB-3(#57) 중층용", Value: 84000}},
		},
		{
			name:    "value outside the window",
			dataset: extract.Concrete,
			lines:   []string{"2025년", "BB-3(#57) 중층용", "단위: 톤", "비고", "84,000"},
			want:    nil,
		},
		{
			name:    "year interrupts the lookahead",
			dataset: extract.Concrete,
			lines:   []string{"2020년", "BB-3(#57) 중층용", "2025년", "84,000"},
			want:    nil,
		},
		{
			name:    "category interrupts the lookahead",
			dataset: extract.Concrete,
			lines:   []string{"2020년", "BB-3(#57) 중층용", "WC-2(#78) 표층용", "70,000"},
			want:    []extract.PriceRecord{{Year: 2020, Category: "WC-2(#78) 표층용", Value: 70000}},
		},
		{
			name:    "category before any year",
			dataset: extract.Concrete,
			lines:   []string{"BB-3(#57) 중층용", "84,000", "2025년"},
			want:    nil,
		},
		{
			name:    "zero amount is not emitted",
			dataset: extract.Construction,
			lines:   []string{"2023년", "도장공", "0원"},
			want:    nil,
		},
		{
			name:    "standalone value reuses the category",
			dataset: extract.Engineering,
			lines:   []string{"2024년", "특급기술자", "423,000원", "430,000원"},
			want: []extract.PriceRecord{
				{Year: 2024, Category: "특급기술자", Value: 423000},
				{Year: 2024, Category: "특급기술자", Value: 430000},
			},
		},
		{
			name:    "noise only",
			dataset: extract.Construction,
			lines:   []string{"건설업 임금실태 조사보고서", "- 3 -"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustNew(t, tt.dataset)
			assert.Equal(t, tt.want, scan(s, tt.lines...))
		})
	}
}

func TestScan_Wide(t *testing.T) {
	s := mustNew(t, extract.Cable)

	t.Run("one record per year column", func(t *testing.T) {
		records := scan(s, "F-CV 0.6/1kV 2.5SQ", "1,200  1,350  1,500  1,480")
		assert.Equal(t, []extract.PriceRecord{
			{Year: 2021, Category: "F-CV 0.6/1kV 2.5SQ", Value: 1200},
			{Year: 2022, Category: "F-CV 0.6/1kV 2.5SQ", Value: 1350},
			{Year: 2023, Category: "F-CV 0.6/1kV 2.5SQ", Value: 1500},
			{Year: 2024, Category: "F-CV 0.6/1kV 2.5SQ", Value: 1480},
		}, records)
	})

	t.Run("empty cells are skipped", func(t *testing.T) {
		records := scan(s, "HIV 4SQ", "900 0 1,100")
		require.Len(t, records, 2)
		assert.Equal(t, 2021, records[0].Year)
		assert.Equal(t, 2023, records[1].Year)
	})
}

func TestStep(t *testing.T) {
	s := mustNew(t, extract.Concrete)
	lines := extract.Lines("2025년\nBB-3(#57) 중층용\n84,000\n")

	state, next, records := s.Step(extract.ScanState{}, lines, 0)
	assert.Equal(t, extract.HasYear, state.Phase())
	assert.Equal(t, 1, next)
	assert.Empty(t, records)

	state, next, records = s.Step(state, lines, next)
	assert.Equal(t, extract.HasYearAndCategory, state.Phase())
	assert.Equal(t, 3, next, "the value line is consumed by the lookahead")
	require.Len(t, records, 1)
	assert.Equal(t, int64(84000), records[0].Value)
}

func TestScan_SharedAcrossDocuments(t *testing.T) {
	s := mustNew(t, extract.Construction)
	docs := []string{
		"2022년\n보통인부\n140,000원",
		"2023년\n보통인부\n150,000원",
		"보통인부\n160,000원",
	}

	results := make(chan int, len(docs))
	for _, d := range docs {
		go func() { results <- len(s.ScanText(d)) }()
	}

	total := 0
	for range docs {
		total += <-results
	}
	assert.Equal(t, 2, total, "no year leaks from one document into another")
}
