package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hopeworks/giving/pkg/validation"
)

func TestCheckAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		valid  bool
	}{
		{"minimum", 1, true},
		{"typical", 5000, true},
		{"maximum", validation.MaxAmountMinor, true},
		{"zero", 0, false},
		{"negative", -50, false},
		{"above ceiling", validation.MaxAmountMinor + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, validation.CheckAmount(tt.amount).Valid)
		})
	}
}

func TestCheckEmail(t *testing.T) {
	assert.True(t, validation.CheckEmail("a@b.com").Valid)
	assert.True(t, validation.CheckEmail("ann.lee+giving@example.org").Valid)
	assert.False(t, validation.CheckEmail("not-an-email").Valid)
	assert.False(t, validation.CheckEmail("@missing-local.com").Valid)
	assert.False(t, validation.CheckEmail("").Valid)
}

func TestCheckName(t *testing.T) {
	assert.True(t, validation.CheckName("Ann Lee").Valid)
	assert.False(t, validation.CheckName("A").Valid)
	assert.False(t, validation.CheckName(strings.Repeat("x", 101)).Valid)
}

func TestCheckNameCountsRunesNotBytes(t *testing.T) {
	assert.True(t, validation.CheckName(strings.Repeat("Ж", 60)).Valid)
	assert.True(t, validation.CheckName(strings.Repeat("名", 100)).Valid)
	assert.False(t, validation.CheckName(strings.Repeat("Ж", 101)).Valid)
}

func TestCheckPhone(t *testing.T) {
	assert.True(t, validation.CheckPhone("").Valid, "phone is optional")
	assert.True(t, validation.CheckPhone("+4915112345678").Valid)
	assert.True(t, validation.CheckPhone("0151 1234 5678").Valid)
	assert.False(t, validation.CheckPhone("abc").Valid)
	assert.False(t, validation.CheckPhone("+12").Valid)
}

func TestCheckMessage(t *testing.T) {
	assert.True(t, validation.CheckMessage(strings.Repeat("m", 500)).Valid)
	assert.False(t, validation.CheckMessage(strings.Repeat("m", 501)).Valid)
}

func TestCheckCategory(t *testing.T) {
	assert.True(t, validation.CheckCategory("").Valid, "empty falls back to general")
	assert.True(t, validation.CheckCategory("missions").Valid)
	assert.False(t, validation.CheckCategory("lottery").Valid)
}

func TestCheckFrequency(t *testing.T) {
	assert.True(t, validation.CheckFrequency("").Valid, "empty means one-off")
	assert.True(t, validation.CheckFrequency("monthly").Valid)
	assert.True(t, validation.CheckFrequency("quarterly").Valid)
	assert.True(t, validation.CheckFrequency("yearly").Valid)
	assert.False(t, validation.CheckFrequency("weekly").Valid)
}

func TestValidateDonationRequestAggregatesErrors(t *testing.T) {
	result := validation.ValidateDonationRequest(validation.DonationRequest{
		AmountMinor: 0,
		Email:       "nope",
		Name:        "x",
		Phone:       "abc",
		Message:     strings.Repeat("m", 501),
		Category:    "lottery",
		Frequency:   "weekly",
	})
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 7, "every violation is reported at once")

	ok := validation.ValidateDonationRequest(validation.DonationRequest{
		AmountMinor: 5000,
		Email:       "a@b.com",
		Name:        "Ann Lee",
	})
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Ann Lee", validation.Sanitize("  Ann Lee \x00"))
	assert.Equal(t, "Ann Lee", validation.Sanitize("\x00 Ann Lee \x07 "))
	assert.Equal(t, "line1\nline2", validation.Sanitize("line1\nline2"))
}
