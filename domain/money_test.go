package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_ToMinor(t *testing.T) {
	eur := Currency{Code: "EUR", MinorUnits: 2}

	m, err := eur.ToMinor(decimal.RequireFromString("1500.25"))
	require.NoError(t, err)
	assert.Equal(t, Money(150025), m)

	_, err = eur.ToMinor(decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, ErrSubMinorPrecision)

	m, err = DefaultCurrency.ToMinor(decimal.NewFromInt(150000))
	require.NoError(t, err)
	assert.Equal(t, Money(150000), m)
}

func TestCurrency_Decimal(t *testing.T) {
	eur := Currency{Code: "EUR", MinorUnits: 2}
	assert.Equal(t, "1500.25", eur.Decimal(150025).String())
	assert.Equal(t, "1500.25 EUR", eur.Format(150025))
	assert.Equal(t, "150000 XOF", DefaultCurrency.Format(150000))
}
