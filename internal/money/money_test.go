package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

func TestNew_RejectsNegative(t *testing.T) {
	_, err := New(decimal.NewFromInt(-1), "USD")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestNew_RequiresCurrency(t *testing.T) {
	_, err := New(decimal.NewFromInt(1), "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestAdd_SameCurrency(t *testing.T) {
	a, err := FromString("10.50", "USD")
	require.NoError(t, err)
	b, err := FromString("4.50", "USD")
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "USD", sum.Currency())
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	a := Zero("USD")
	b := Zero("EUR")

	_, err := a.Add(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.Equal(t, apperr.CodeCurrencyMismatch, apperr.CodeOf(err))
}

func TestMul(t *testing.T) {
	price, err := FromString("100", "USD")
	require.NoError(t, err)

	total, err := price.Mul(2)
	require.NoError(t, err)
	assert.True(t, total.Amount().Equal(decimal.NewFromInt(200)))

	_, err = price.Mul(-1)
	assert.Error(t, err)
}

func TestFromString_Malformed(t *testing.T) {
	_, err := FromString("ten", "USD")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}
