// Package validation provides pure field validators for donation input.
//
// Validators accumulate violations into a Result instead of failing on the
// first one, so a caller can report every problem in a single response.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hopeworks/giving/pkg/domain/donation"
)

// Amount bounds, in minor units. The ceiling is 100,000 whole units.
const (
	MinAmountMinor int64 = 1
	MaxAmountMinor int64 = 100_000 * 100
)

// MaxMessageLen caps the optional donor message.
const MaxMessageLen = 500

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// Result aggregates the outcome of one or more checks.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Merge folds other into r.
func (r *Result) Merge(other Result) {
	if !other.Valid {
		r.Valid = false
		r.Errors = append(r.Errors, other.Errors...)
	}
}

func ok() Result { return Result{Valid: true} }

func fail(msg string) Result { return Result{Valid: false, Errors: []string{msg}} }

// CheckAmount validates an amount in integer minor units.
func CheckAmount(amountMinor int64) Result {
	if amountMinor < MinAmountMinor {
		return fail("amount must be a positive integer of minor currency units")
	}
	if amountMinor > MaxAmountMinor {
		return fail(fmt.Sprintf("amount must not exceed %d minor units", MaxAmountMinor))
	}
	return ok()
}

// CheckEmail validates a donor email address.
func CheckEmail(email string) Result {
	if !emailRe.MatchString(email) {
		return fail("email address is not valid")
	}
	return ok()
}

// CheckName validates the donor name length in runes, not bytes, so
// multi-byte scripts are not penalized.
func CheckName(name string) Result {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 2 || n > 100 {
		return fail("name must be between 2 and 100 characters")
	}
	return ok()
}

// CheckPhone validates an optional international phone number. An empty
// value passes.
func CheckPhone(phone string) Result {
	if phone == "" {
		return ok()
	}
	if !phoneRe.MatchString(strings.ReplaceAll(phone, " ", "")) {
		return fail("phone number is not valid")
	}
	return ok()
}

// CheckMessage validates the optional donor message length.
func CheckMessage(message string) Result {
	if len(message) > MaxMessageLen {
		return fail(fmt.Sprintf("message must not exceed %d characters", MaxMessageLen))
	}
	return ok()
}

// CheckCategory validates the donation category. An empty value passes;
// the orchestrator substitutes the general category.
func CheckCategory(category string) Result {
	if category == "" {
		return ok()
	}
	if !donation.Category(category).IsValid() {
		return fail(fmt.Sprintf("category must be one of: %s", categoryList()))
	}
	return ok()
}

// CheckFrequency validates the recurring cadence. An empty value passes;
// it means a one-off donation.
func CheckFrequency(frequency string) Result {
	if frequency == "" {
		return ok()
	}
	if !donation.Frequency(frequency).IsValid() {
		return fail(fmt.Sprintf("frequency must be one of: %s", frequencyList()))
	}
	return ok()
}

func frequencyList() string {
	names := make([]string, len(donation.Frequencies))
	for i, f := range donation.Frequencies {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func categoryList() string {
	names := make([]string, len(donation.Categories))
	for i, c := range donation.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// Sanitize strips control characters from free-text input and trims
// surrounding whitespace. Control characters are removed first so stripping
// one cannot leave freshly exposed whitespace at the edges.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// DonationRequest is the validatable subset of a donation creation request.
type DonationRequest struct {
	AmountMinor int64
	Email       string
	Name        string
	Phone       string
	Message     string
	Category    string
	Frequency   string
}

// ValidateDonationRequest runs every field check and aggregates the result.
func ValidateDonationRequest(req DonationRequest) Result {
	r := ok()
	r.Merge(CheckAmount(req.AmountMinor))
	r.Merge(CheckEmail(req.Email))
	r.Merge(CheckName(req.Name))
	r.Merge(CheckPhone(req.Phone))
	r.Merge(CheckMessage(req.Message))
	r.Merge(CheckCategory(req.Category))
	r.Merge(CheckFrequency(req.Frequency))
	return r
}
