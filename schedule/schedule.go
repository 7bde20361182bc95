// Package schedule derives the obligation schedule of a contract from its
// validated terms. All arithmetic is done on integer minor units.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beesaferoot/lotassign/domain"
)

// Config carries the defaults applied to optional lease terms.
type Config struct {
	Currency          domain.Currency
	AdvanceMonths     int
	BillingDayOfMonth int
	GracePeriodDays   int
	LatePenaltyRate   decimal.Decimal
}

// DefaultConfig returns the defaults used when no configuration is loaded.
func DefaultConfig() Config {
	return Config{
		Currency:          domain.DefaultCurrency,
		AdvanceMonths:     1,
		BillingDayOfMonth: 5,
		GracePeriodDays:   0,
		LatePenaltyRate:   decimal.Zero,
	}
}

// Calculator turns terms into obligations.
type Calculator struct {
	cfg Config
}

// New creates a Calculator.
func New(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the calculator configuration.
func (c *Calculator) Config() Config { return c.cfg }

// Compute returns the schedule for terms. Entries are numbered from 1 in
// due-date order.
func (c *Calculator) Compute(terms domain.Terms) (domain.Schedule, error) {
	var s domain.Schedule
	switch t := terms.(type) {
	case domain.LeaseTerms:
		s = c.lease(t)
	case domain.SaleTerms:
		s = c.sale(t)
	case domain.ReservationTerms:
		s = domain.Schedule{{
			Kind:            domain.KindHold,
			DueDate:         t.ExpirationDate,
			LatePenaltyRate: decimal.Zero,
		}}
	default:
		return nil, fmt.Errorf("schedule: unsupported terms %T", terms)
	}
	for i := range s {
		s[i].Seq = i + 1
	}
	return s, nil
}

func (c *Calculator) lease(t domain.LeaseTerms) domain.Schedule {
	charges := moneyOr(t.Charges, 0)
	caution := moneyOr(t.Caution, 0)
	advance := intOr(t.AdvanceMonths, c.cfg.AdvanceMonths)
	billingDay := intOr(t.BillingDayOfMonth, c.cfg.BillingDayOfMonth)
	grace := intOr(t.GracePeriodDays, c.cfg.GracePeriodDays)
	rate := c.cfg.LatePenaltyRate
	if t.LatePenaltyRate != nil {
		rate = *t.LatePenaltyRate
	}

	s := make(domain.Schedule, 0, t.DurationMonths+2)
	if caution > 0 {
		s = append(s, domain.Obligation{
			Kind:            domain.KindCaution,
			DueDate:         t.StartDate,
			Amount:          caution,
			LatePenaltyRate: decimal.Zero,
		})
	}
	if advance > 0 {
		s = append(s, domain.Obligation{
			Kind:            domain.KindAdvance,
			DueDate:         t.StartDate,
			Amount:          domain.Money(advance) * t.MonthlyRent,
			LatePenaltyRate: decimal.Zero,
		})
	}

	first := firstBillingDate(t.StartDate, billingDay)
	for i := 0; i < t.DurationMonths; i++ {
		s = append(s, domain.Obligation{
			Kind:            domain.KindRent,
			DueDate:         first.AddDate(0, i, 0),
			Amount:          t.MonthlyRent + charges,
			Charges:         charges,
			PenaltyEligible: true,
			GracePeriodDays: grace,
			LatePenaltyRate: rate,
		})
	}
	return s
}

func (c *Calculator) sale(t domain.SaleTerms) domain.Schedule {
	if t.PaymentMode != domain.PaymentInstallment {
		return domain.Schedule{{
			Kind:            domain.KindSale,
			DueDate:         t.StartDate,
			Amount:          t.SalePrice,
			LatePenaltyRate: decimal.Zero,
		}}
	}

	s := make(domain.Schedule, 0, t.InstallmentMonths+1)
	if t.DownPayment > 0 {
		s = append(s, domain.Obligation{
			Kind:            domain.KindDownPayment,
			DueDate:         t.StartDate,
			Amount:          t.DownPayment,
			LatePenaltyRate: decimal.Zero,
		})
	}
	for i, amount := range Split(t.SalePrice-t.DownPayment, t.InstallmentMonths) {
		s = append(s, domain.Obligation{
			Kind:            domain.KindInstallment,
			DueDate:         AddMonths(t.StartDate, i+1),
			Amount:          amount,
			PenaltyEligible: true,
			LatePenaltyRate: decimal.Zero,
		})
	}
	return s
}

// Split divides total into n equal parts; the last part absorbs the
// remainder so the parts always sum to total.
func Split(total domain.Money, n int) []domain.Money {
	if n < 1 {
		return nil
	}
	parts := make([]domain.Money, n)
	base := total / domain.Money(n)
	for i := range parts {
		parts[i] = base
	}
	parts[n-1] += total - base*domain.Money(n)
	return parts
}

// AddMonths moves t forward by n calendar months, clamping the day to the
// last day of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// firstBillingDate is the billing day of the start month, or of the next
// month when the lease starts after that day.
func firstBillingDate(start time.Time, day int) time.Time {
	y, m, d := start.Date()
	if d > day {
		m++
	}
	return time.Date(y, m, day, 0, 0, 0, 0, start.Location())
}

func moneyOr(p *domain.Money, def domain.Money) domain.Money {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
