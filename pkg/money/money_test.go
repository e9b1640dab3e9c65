package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Construction
// ============================================================================

func TestWon(t *testing.T) {
	m := Won(84000)
	assert.Equal(t, int64(84000), m.Amount())
	assert.Equal(t, KRW, m.Currency())
	assert.Equal(t, "84000", m.ToDecimal().String())
}

func TestNewFromString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"plain", "84000", 84000},
		{"grouped", "84,000", 84000},
		{"unit suffix", "1,234원", 1234},
		{"symbol prefix", "₩ 91,000", 91000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromString(tt.input, KRW)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := NewFromString("abc", KRW)
		assert.Error(t, err)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := NewFromString("10", "XXX-NOPE")
		assert.Error(t, err)
	})
}

// ============================================================================
// Arithmetic and display
// ============================================================================

func TestSubtract(t *testing.T) {
	diff, err := Won(84000).Subtract(Won(61000))
	require.NoError(t, err)
	assert.Equal(t, int64(23000), diff.Amount())

	_, err = Won(1).Subtract(New(1, USD))
	assert.Error(t, err)
}

func TestDisplay(t *testing.T) {
	assert.Contains(t, Won(84000).Display(), "84,000")
	var nilMoney *Money
	assert.Empty(t, nilMoney.Display())
}

func TestPercentChange(t *testing.T) {
	pct, ok := Won(84000).PercentChange(Won(61000))
	require.True(t, ok)
	assert.Equal(t, "37.70", pct.StringFixed(2))

	_, ok = Won(10).PercentChange(Won(0))
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Won(77000))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":77000`)
	assert.Contains(t, string(data), `"currency":"KRW"`)

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":77000}`), &m))
	assert.Equal(t, KRW, m.Currency())
	assert.Equal(t, int64(77000), m.Amount())
}
