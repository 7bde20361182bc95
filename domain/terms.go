package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of every calendar date in terms.
const DateLayout = "2006-01-02"

// ContractType selects one of the three mutually exclusive transaction shapes.
type ContractType string

const (
	ContractLease       ContractType = "lease"
	ContractSale        ContractType = "sale"
	ContractReservation ContractType = "reservation"
)

// Valid reports whether t is a known contract type.
func (t ContractType) Valid() bool {
	return t == ContractLease || t == ContractSale || t == ContractReservation
}

// PaymentMode is how a sale is paid.
type PaymentMode string

const (
	PaymentCash        PaymentMode = "cash"
	PaymentInstallment PaymentMode = "installment"
)

// RawTerms is the loosely typed input a caller submits. Every field is
// optional here; which ones are required or forbidden depends on the
// contract type and is decided by the validator.
type RawTerms struct {
	StartDate      string `json:"startDate,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
	ExpirationDate string `json:"expirationDate,omitempty"`

	MonthlyRent       *decimal.Decimal `json:"monthlyRent,omitempty"`
	DurationMonths    *int             `json:"durationMonths,omitempty"`
	Charges           *decimal.Decimal `json:"charges,omitempty"`
	Caution           *decimal.Decimal `json:"caution,omitempty"`
	AdvanceMonths     *int             `json:"advanceMonths,omitempty"`
	BillingDayOfMonth *int             `json:"billingDayOfMonth,omitempty"`
	GracePeriodDays   *int             `json:"gracePeriodDays,omitempty"`
	LatePenaltyRate   *decimal.Decimal `json:"latePenaltyRate,omitempty"`

	SalePrice         *decimal.Decimal `json:"salePrice,omitempty"`
	PaymentMode       string           `json:"paymentMode,omitempty"`
	DownPayment       *decimal.Decimal `json:"downPayment,omitempty"`
	InstallmentMonths *int             `json:"installmentMonths,omitempty"`
}

// Terms is the validated, type-specific payload of a contract. The concrete
// type is one of LeaseTerms, SaleTerms or ReservationTerms.
type Terms interface {
	ContractType() ContractType
	Start() time.Time
	// Raw renders the terms back into wire form.
	Raw(c Currency) RawTerms
	isTerms()
}

// LeaseTerms are the terms of a rental. Optional fields stay nil when the
// caller omitted them; the schedule calculator applies configured defaults.
type LeaseTerms struct {
	StartDate         time.Time
	EndDate           *time.Time
	MonthlyRent       Money
	DurationMonths    int
	Charges           *Money
	Caution           *Money
	AdvanceMonths     *int
	BillingDayOfMonth *int
	GracePeriodDays   *int
	LatePenaltyRate   *decimal.Decimal
}

func (LeaseTerms) ContractType() ContractType { return ContractLease }
func (t LeaseTerms) Start() time.Time { return t.StartDate }
func (LeaseTerms) isTerms() {}

func (t LeaseTerms) Raw(c Currency) RawTerms {
	return RawTerms{
		StartDate:         t.StartDate.Format(DateLayout),
		EndDate:           formatDate(t.EndDate),
		MonthlyRent:       decimalPtr(c, &t.MonthlyRent),
		DurationMonths:    intPtr(t.DurationMonths),
		Charges:           decimalPtr(c, t.Charges),
		Caution:           decimalPtr(c, t.Caution),
		AdvanceMonths:     t.AdvanceMonths,
		BillingDayOfMonth: t.BillingDayOfMonth,
		GracePeriodDays:   t.GracePeriodDays,
		LatePenaltyRate:   t.LatePenaltyRate,
	}
}

// SaleTerms are the terms of a direct sale. DownPayment and
// InstallmentMonths are zero for cash sales.
type SaleTerms struct {
	StartDate         time.Time
	EndDate           *time.Time
	SalePrice         Money
	PaymentMode       PaymentMode
	DownPayment       Money
	InstallmentMonths int
}

func (SaleTerms) ContractType() ContractType { return ContractSale }
func (t SaleTerms) Start() time.Time { return t.StartDate }
func (SaleTerms) isTerms() {}

func (t SaleTerms) Raw(c Currency) RawTerms {
	raw := RawTerms{
		StartDate:   t.StartDate.Format(DateLayout),
		EndDate:     formatDate(t.EndDate),
		SalePrice:   decimalPtr(c, &t.SalePrice),
		PaymentMode: string(t.PaymentMode),
	}
	if t.PaymentMode == PaymentInstallment {
		raw.DownPayment = decimalPtr(c, &t.DownPayment)
		raw.InstallmentMonths = intPtr(t.InstallmentMonths)
	}
	return raw
}

// Trigger is the status-machine event this sale fires at signing.
func (t SaleTerms) Trigger() Trigger {
	if t.PaymentMode == PaymentInstallment {
		return TriggerInstallmentSale
	}
	return TriggerCashSale
}

// ReservationTerms hold a lot for a client until ExpirationDate.
type ReservationTerms struct {
	StartDate      time.Time
	ExpirationDate time.Time
}

func (ReservationTerms) ContractType() ContractType { return ContractReservation }
func (t ReservationTerms) Start() time.Time { return t.StartDate }
func (ReservationTerms) isTerms() {}

func (t ReservationTerms) Raw(Currency) RawTerms {
	return RawTerms{
		StartDate:      t.StartDate.Format(DateLayout),
		ExpirationDate: t.ExpirationDate.Format(DateLayout),
	}
}

// TriggerFor returns the status-machine event fired when terms are signed.
func TriggerFor(t Terms) Trigger {
	switch v := t.(type) {
	case LeaseTerms:
		return TriggerLease
	case SaleTerms:
		return v.Trigger()
	default:
		return TriggerReservation
	}
}

// EndOf returns the contract end date implied by terms: the declared end of
// a lease or sale, or the expiration of a reservation.
func EndOf(t Terms) *time.Time {
	switch v := t.(type) {
	case LeaseTerms:
		return v.EndDate
	case SaleTerms:
		return v.EndDate
	case ReservationTerms:
		exp := v.ExpirationDate
		return &exp
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func decimalPtr(c Currency, m *Money) *decimal.Decimal {
	if m == nil {
		return nil
	}
	d := c.Decimal(*m)
	return &d
}

func intPtr(v int) *int { return &v }
