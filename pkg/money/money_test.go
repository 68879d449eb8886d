package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopeworks/giving/pkg/money"
)

func TestNewFromMinor(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		currency money.Code
		wantErr  error
	}{
		{"valid euro amount", 5000, money.EUR, nil},
		{"valid single cent", 1, money.USD, nil},
		{"zero amount", 0, money.EUR, money.ErrInvalidAmount},
		{"negative amount", -100, money.EUR, money.ErrInvalidAmount},
		{"lowercase currency", 100, money.Code("eur"), money.ErrInvalidCurrency},
		{"short currency", 100, money.Code("EU"), money.ErrInvalidCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := money.NewFromMinor(tt.amount, tt.currency)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.amount, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestMoneyString(t *testing.T) {
	m, err := money.NewFromMinor(5000, money.EUR)
	require.NoError(t, err)
	assert.Equal(t, "50.00 EUR", m.String())

	jpy, err := money.NewFromMinor(5000, money.JPY)
	require.NoError(t, err)
	assert.Equal(t, "5000 JPY", jpy.String())

	cents, err := money.NewFromMinor(5, money.USD)
	require.NoError(t, err)
	assert.Equal(t, "0.05 USD", cents.String())
}

func TestMoneyMarshalJSON(t *testing.T) {
	m, err := money.NewFromMinor(1234, money.GBP)
	require.NoError(t, err)
	data, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":1234,"currency":"GBP"}`, string(data))
}
