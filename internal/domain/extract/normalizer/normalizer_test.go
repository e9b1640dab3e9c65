package normalizer

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

func fakeRecords(faker *gofakeit.Faker, n int) []extract.PriceRecord {
	categories := []string{"보통인부", "철근공", "특급기술자", "BB-3(#57) 중층용", "F-CV 2.5SQ"}
	records := make([]extract.PriceRecord, n)
	for i := range records {
		records[i] = extract.PriceRecord{
			Year:     faker.Number(2018, 2025),
			Category: categories[faker.Number(0, len(categories)-1)],
			Value:    int64(faker.Number(1, 5) * 1000),
		}
	}
	return records
}

func TestNormalize_Idempotent(t *testing.T) {
	faker := gofakeit.New(42)

	for i := 0; i < 20; i++ {
		records := fakeRecords(faker, 50)
		once := Normalize(slices.Clone(records))
		twice := Normalize(slices.Clone(once))
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_SortOrder(t *testing.T) {
	faker := gofakeit.New(7)
	records := Normalize(fakeRecords(faker, 100))

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		ordered := prev.Year < cur.Year || (prev.Year == cur.Year && prev.Category < cur.Category)
		assert.True(t, ordered, "%v must sort before %v", prev, cur)
	}
}

func TestNormalize_NeverAddsRecords(t *testing.T) {
	in := []extract.PriceRecord{
		{Year: 2021, Category: "10SQ", Value: 1000},
		{Year: 2024, Category: "10SQ", Value: 1300},
	}
	out := Normalize(in)
	assert.Len(t, out, 2, "missing years stay missing")
}

func TestNormalize_Policies(t *testing.T) {
	records := []extract.PriceRecord{
		{Year: 2023, Category: "철근공", Value: 230000},
		{Year: 2023, Category: "보통인부", Value: 150000},
		{Year: 2023, Category: "보통인부", Value: 150000},
		{Year: 2023, Category: "보통인부", Value: 152000},
	}

	t.Run("last wins", func(t *testing.T) {
		var logs bytes.Buffer
		n := New(LastWins, slog.New(slog.NewTextHandler(&logs, nil)))

		res, err := n.Normalize(slices.Clone(records))
		require.NoError(t, err)
		assert.Equal(t, []extract.PriceRecord{
			{Year: 2023, Category: "보통인부", Value: 152000},
			{Year: 2023, Category: "철근공", Value: 230000},
		}, res.Records)
		assert.Equal(t, 1, res.Duplicates)
		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, int64(152000), res.Conflicts[0].Kept)
		assert.Equal(t, int64(150000), res.Conflicts[0].Discarded)
		assert.Contains(t, logs.String(), "level=WARN")
	})

	t.Run("first wins", func(t *testing.T) {
		res, err := New(FirstWins, nil).Normalize(slices.Clone(records))
		require.NoError(t, err)
		assert.Equal(t, int64(150000), res.Records[0].Value)
		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, int64(152000), res.Conflicts[0].Discarded)
	})

	t.Run("error on conflict", func(t *testing.T) {
		_, err := New(FailOnConflict, nil).Normalize(slices.Clone(records))
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("exact duplicates are not conflicts", func(t *testing.T) {
		res, err := New(FailOnConflict, nil).Normalize(records[:3])
		require.NoError(t, err)
		assert.Len(t, res.Records, 2)
		assert.Empty(t, res.Conflicts)
	})
}

func TestSort_Stable(t *testing.T) {
	records := []extract.PriceRecord{
		{Year: 2024, Category: "b", Value: 1},
		{Year: 2023, Category: "a", Value: 2},
		{Year: 2024, Category: "b", Value: 3},
	}
	Sort(records)
	assert.Equal(t, []int64{2, 1, 3}, []int64{records[0].Value, records[1].Value, records[2].Value})
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"", LastWins},
		{"last_wins", LastWins},
		{"FIRST", FirstWins},
		{" first_wins ", FirstWins},
		{"error", FailOnConflict},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParsePolicy("newest")
	assert.Error(t, err)
	assert.Equal(t, "error", FailOnConflict.String())
}
