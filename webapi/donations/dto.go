package donations

import "time"

// CreateIntentRequest is the donation request body. Amount is an integer of
// minor currency units (cents); floats are never accepted.
type CreateIntentRequest struct {
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	Currency     string `json:"currency" validate:"required,len=3"`
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone,omitempty"`
	Message      string `json:"message,omitempty" validate:"max=500"`
	Anonymous    bool   `json:"anonymous,omitempty"`
	Category     string `json:"category,omitempty"`
	WantsReceipt bool   `json:"wants_receipt,omitempty"`
	Frequency    string `json:"frequency,omitempty" validate:"omitempty,oneof=monthly quarterly yearly"`
}

// ConfirmRequest identifies the gateway intent to confirm.
type ConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// BeneficiaryDTO is the recipient display view; the account number is
// masked to its last four characters.
type BeneficiaryDTO struct {
	Name          string `json:"name"`
	MaskedAccount string `json:"masked_account"`
	Bank          string `json:"bank,omitempty"`
}

// IntentDTO is returned after a successful intent creation.
type IntentDTO struct {
	DonationID   string         `json:"donation_id"`
	ClientSecret string         `json:"client_secret"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
	Beneficiary  BeneficiaryDTO `json:"beneficiary"`
}

// DonationDTO is a donation summary for API responses.
type DonationDTO struct {
	ID        string     `json:"id"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	DonorName string     `json:"donor_name"`
	Message   string     `json:"message,omitempty"`
	Category  string     `json:"category"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// StatsDTO is the aggregate view. Amounts are integer minor units.
type StatsDTO struct {
	TotalCompleted int64            `json:"total_completed"`
	CompletedCount int64            `json:"completed_count"`
	FailedCount    int64            `json:"failed_count"`
	PendingCount   int64            `json:"pending_count"`
	RefundedCount  int64            `json:"refunded_count"`
	ByCategory     map[string]int64 `json:"by_category"`
}
