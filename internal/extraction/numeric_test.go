package extraction

import (
	"errors"
	"testing"

	"github.com/aristath/fiis/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"brazilian thousands and decimals", "1.234,56", "1234.56"},
		{"comma decimal", "1,5", "1.5"},
		{"currency prefix", "R$ 0,10", "0.10"},
		{"currency with thousands", "R$ 1.050,00", "1050"},
		{"period thousands only", "1.234", "1234"},
		{"period thousands millions", "1.234.567", "1234567"},
		{"period decimal one digit", "1.5", "1.5"},
		{"period decimal two digits", "12.50", "12.5"},
		{"period decimal four digits", "0.8512", "0.8512"},
		{"integer", "15", "15"},
		{"surrounding whitespace", "\n   0,85  \n", "0.85"},
		{"both separators always treat period as thousands", "1,234.56", "1.23456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)), "got %s want %s", got, tt.expected)
		})
	}
}

func TestParseAmountKeepsExactDecimal(t *testing.T) {
	got, err := ParseAmount("R$ 0,10")
	require.NoError(t, err)
	// 0.10 has no exact binary representation; the decimal must stay exact
	assert.Equal(t, "0.1", got.String())
	assert.True(t, got.Mul(decimal.NewFromInt(3)).Equal(decimal.RequireFromString("0.3")))
}

func TestParseAmountErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "R$", "abc", ".", ",", "1,2,3", "1.2.3,4,5"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAmount(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrParse))

			var parseErr *domain.ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, input, parseErr.Text)
		})
	}
}
