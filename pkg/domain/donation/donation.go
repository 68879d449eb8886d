// Package donation holds the ledger entity for a single donation and its
// lifecycle state machine. The ledger is the sole owner of donation state:
// rows are created pending, advanced by the orchestrator and the webhook
// reconciler, and never physically deleted.
package donation

import (
	"time"

	"github.com/google/uuid"
	"github.com/hopeworks/giving/pkg/money"
)

// Kind distinguishes one-off gifts from recurring schedules and campaigns.
type Kind string

const (
	KindSingle    Kind = "single"
	KindRecurring Kind = "recurring"
	KindCampaign  Kind = "campaign"
)

// Category is the designated purpose of a donation.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryChurch    Category = "church"
	CategoryProjects  Category = "projects"
	CategoryEducation Category = "education"
	CategoryCharity   Category = "charity"
	CategoryMissions  Category = "missions"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryGeneral, CategoryChurch, CategoryProjects,
	CategoryEducation, CategoryCharity, CategoryMissions,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Frequency is the billing cadence of a recurring donation.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Frequencies lists every valid cadence.
var Frequencies = []Frequency{FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}

// IsValid reports whether f is a known cadence.
func (f Frequency) IsValid() bool {
	for _, v := range Frequencies {
		if v == f {
			return true
		}
	}
	return false
}

// Next returns the due date one cadence after from.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// GatewayRefs are the opaque identifiers reported back by the payment
// gateway. They are write-once: set only by the orchestrator (intent id) or
// the reconciler (charge id, customer id), never from client input.
type GatewayRefs struct {
	SessionID       string
	PaymentIntentID string
	CustomerID      string
	ChargeID        string
	PriceID         string
	SubscriptionID  string
}

// Recurring describes the schedule of a recurring donation. It is present
// iff Kind == KindRecurring.
type Recurring struct {
	Frequency   Frequency
	NextDueDate time.Time
	Active      bool
	CancelledAt *time.Time
}

// Donation is the ledger entity.
type Donation struct {
	ID         uuid.UUID
	Amount     money.Money
	DonorEmail string
	DonorName  string
	DonorPhone string
	Message    string
	Anonymous  bool
	Kind       Kind
	Category   Category
	Status     Status
	Gateway    GatewayRefs
	Recurring  *Recurring
	RetryCount int
	LastError  string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
	PaidAt      *time.Time
}

// New builds a pending donation. Amount and category validity is the
// caller's concern (see pkg/validation); New enforces the structural
// invariants only.
func New(amount money.Money, email, name string, kind Kind, category Category) (*Donation, error) {
	if kind == KindRecurring {
		return nil, ErrRecurringScheduleRequired
	}
	now := time.Now().UTC()
	return &Donation{
		ID:         uuid.New(),
		Amount:     amount,
		DonorEmail: email,
		DonorName:  name,
		Kind:       kind,
		Category:   category,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NewRecurring builds a pending recurring donation with its schedule.
func NewRecurring(
	amount money.Money,
	email, name string,
	category Category,
	freq Frequency,
	nextDue time.Time,
) (*Donation, error) {
	d, err := New(amount, email, name, KindSingle, category)
	if err != nil {
		return nil, err
	}
	d.Kind = KindRecurring
	d.Recurring = &Recurring{
		Frequency:   freq,
		NextDueDate: nextDue,
		Active:      true,
	}
	return d, nil
}

// DisplayName returns the donor name for public surfaces, honoring the
// anonymity flag.
func (d *Donation) DisplayName() string {
	if d.Anonymous {
		return "Anonymous"
	}
	return d.DonorName
}
