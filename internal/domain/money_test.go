package domain_test

import (
	"testing"

	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "ARS", domain.ARS.String())
	assert.Equal(t, "ARS 1234.50", domain.NewMoney(decimal.RequireFromString("1234.5"), domain.ARS).String())
}

func TestParseMoney(t *testing.T) {
	m, err := domain.ParseMoney("2710", domain.ARS)
	require.NoError(t, err)
	assert.True(t, m.Amount.Equal(decimal.NewFromInt(2710)))
	assert.Equal(t, domain.ARS, m.Currency)

	_, err = domain.ParseMoney("12,5", domain.ARS)
	require.Error(t, err)
}

func TestWithinTolerance(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")

	assert.True(t, domain.WithinTolerance(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.01"), tolerance))
	assert.False(t, domain.WithinTolerance(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.02"), tolerance))
}
