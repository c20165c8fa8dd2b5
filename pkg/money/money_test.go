package money_test

import (
	"testing"

	"github.com/amirasaad/presale/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{"usd cents", "12.50", "USD", 1250},
		{"lowercase code", "1", "eur", 100},
		{"yen has no minor unit", "1500", "JPY", 1500},
		{"dinar has three decimals", "1.234", "KWD", 1234},
		{"won has no minor unit", "50000", "KRW", 50000},
		{"dong has no minor unit", "100000", "VND", 100000},
		{"chilean peso has no minor unit", "990", "CLP", 990},
		{"bahraini dinar", "10", "BHD", 10000},
		{"omani rial", "2.5", "OMR", 2500},
		{"unidad de fomento", "1.2345", "CLF", 12345},
		{"unlisted code uses cents", "3.10", "AED", 310},
		{"rounds zero-decimal amounts", "1499.5", "KRW", 1500},
		{"rounds half away from zero", "0.005", "USD", 1},
		{"zero", "0", "USD", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinorUnits_Errors(t *testing.T) {
	_, err := money.ToMinorUnits(decimal.NewFromInt(1), "US")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)

	_, err = money.ToMinorUnits(decimal.NewFromInt(-1), "USD")
	assert.ErrorIs(t, err, money.ErrNegativeAmount)

	_, err = money.ToMinorUnits(decimal.RequireFromString("1e30"), "USD")
	assert.ErrorIs(t, err, money.ErrAmountExceedsMaxSafeInt)
}

func TestFromMinorUnits(t *testing.T) {
	got, err := money.FromMinorUnits(1250, "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")), got.String())

	got, err = money.FromMinorUnits(1500, "JPY")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(1500)))

	got, err = money.FromMinorUnits(10000, "BHD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(10)), got.String())
}

func TestCode_ToCurrency(t *testing.T) {
	assert.Equal(t, money.Currency{Code: "JPY", Decimals: 0}, money.Code("JPY").ToCurrency())
	assert.Equal(t, 3, money.Code("TND").ToCurrency().Decimals)
	assert.Equal(t, 2, money.Code("USD").ToCurrency().Decimals)
}

func TestParseCode(t *testing.T) {
	c, err := money.ParseCode(" usd ")
	require.NoError(t, err)
	assert.Equal(t, money.Code("USD"), c)

	_, err = money.ParseCode("USDT")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)
	assert.False(t, money.Code("usd").IsValid())
}
