package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus is the lifecycle state of a contract. Contracts are never
// deleted; closed ones stay for audit.
type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractConverted ContractStatus = "converted"
	ContractExpired   ContractStatus = "expired"
	ContractCompleted ContractStatus = "completed"
)

// Contract binds a client to a lot under one of the three contract types.
type Contract struct {
	ID         string         `json:"id"`
	LotID      string         `json:"lotId"`
	ClientID   string         `json:"clientId"`
	Type       ContractType   `json:"contractType"`
	Status     ContractStatus `json:"status"`
	StartDate  time.Time      `json:"startDate"`
	EndDate    *time.Time     `json:"endDate,omitempty"`
	Currency   Currency       `json:"currency"`
	Terms      Terms          `json:"-"`
	Schedule   Schedule       `json:"schedule"`
	CreatedBy  Actor          `json:"createdBy"`
	Advisories []string       `json:"advisories,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// ExpiresAt returns the hold deadline for reservations.
func (c *Contract) ExpiresAt() (time.Time, bool) {
	r, ok := c.Terms.(ReservationTerms)
	if !ok {
		return time.Time{}, false
	}
	return r.ExpirationDate, true
}

// ObligationKind classifies a scheduled monetary event.
type ObligationKind string

const (
	KindRent        ObligationKind = "rent"
	KindCaution     ObligationKind = "caution"
	KindAdvance     ObligationKind = "advance"
	KindSale        ObligationKind = "sale"
	KindDownPayment ObligationKind = "down_payment"
	KindInstallment ObligationKind = "installment"
	KindHold        ObligationKind = "hold"
)

// Obligation is one scheduled amount. Recurring rent lines carry the grace
// period and penalty rate so payment recording can assess lateness alone.
type Obligation struct {
	Seq             int             `json:"seq"`
	Kind            ObligationKind  `json:"kind"`
	DueDate         time.Time       `json:"dueDate"`
	Amount          Money           `json:"amount"`
	Charges         Money           `json:"charges,omitempty"`
	PenaltyEligible bool            `json:"penaltyEligible"`
	GracePeriodDays int             `json:"gracePeriodDays,omitempty"`
	LatePenaltyRate decimal.Decimal `json:"latePenaltyRate"`
}

// Schedule is the derived list of obligations for a contract.
type Schedule []Obligation

// Total sums every obligation.
func (s Schedule) Total() Money {
	var total Money
	for _, o := range s {
		total += o.Amount
	}
	return total
}

// OfKind returns the obligations of kind k in order.
func (s Schedule) OfKind(k ObligationKind) Schedule {
	var out Schedule
	for _, o := range s {
		if o.Kind == k {
			out = append(out, o)
		}
	}
	return out
}
