// Package validate decides which terms fields each contract type requires
// or forbids, checks their ranges, and turns raw input into typed terms.
//
// Validation is a pure function of its input and the injected clock: every
// problem is collected and returned together in a *domain.ValidationError.
package validate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beesaferoot/lotassign/domain"
)

// Config holds the tunables of the validator.
type Config struct {
	Currency domain.Currency
	// MaxHoldDays bounds expirationDate - startDate for reservations.
	MaxHoldDays int
	// ClockSkew is how far in the past a start date may lie.
	ClockSkew time.Duration
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Currency:    domain.DefaultCurrency,
		MaxHoldDays: 30,
		ClockSkew:   15 * time.Minute,
	}
}

// Validator checks contract terms.
type Validator struct {
	cfg Config
	now func() time.Time
}

// Option customises a Validator.
type Option func(*Validator)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New creates a Validator.
func New(cfg Config, opts ...Option) *Validator {
	v := &Validator{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Config returns the validator configuration.
func (v *Validator) Config() Config { return v.cfg }

// Field names as they appear on the wire and in errors.
const (
	FieldContractType      = "contractType"
	FieldStartDate         = "startDate"
	FieldEndDate           = "endDate"
	FieldExpirationDate    = "expirationDate"
	FieldMonthlyRent       = "monthlyRent"
	FieldDurationMonths    = "durationMonths"
	FieldCharges           = "charges"
	FieldCaution           = "caution"
	FieldAdvanceMonths     = "advanceMonths"
	FieldBillingDayOfMonth = "billingDayOfMonth"
	FieldGracePeriodDays   = "gracePeriodDays"
	FieldLatePenaltyRate   = "latePenaltyRate"
	FieldSalePrice         = "salePrice"
	FieldPaymentMode       = "paymentMode"
	FieldDownPayment       = "downPayment"
	FieldInstallmentMonths = "installmentMonths"
)

// Late penalty rates are fractions of the overdue amount, stored with six
// decimal places.
const RateScale = 6

var MaxRate = decimal.NewFromInt(1)

// CheckRate returns the error code and message for an unusable rate, or
// empty strings when r is acceptable.
func CheckRate(r decimal.Decimal) (code, msg string) {
	switch {
	case r.IsNegative():
		return domain.CodeRange, "must be at least 0"
	case r.GreaterThan(MaxRate):
		return domain.CodeRange, "must be at most " + MaxRate.String()
	case !r.Equal(r.Truncate(RateScale)):
		return domain.CodePrecision, fmt.Sprintf("at most %d decimal places", RateScale)
	}
	return "", ""
}

// fieldOrder fixes the reporting order of forbidden-field errors.
var fieldOrder = []string{
	FieldStartDate, FieldEndDate, FieldExpirationDate,
	FieldMonthlyRent, FieldDurationMonths, FieldCharges, FieldCaution,
	FieldAdvanceMonths, FieldBillingDayOfMonth, FieldGracePeriodDays, FieldLatePenaltyRate,
	FieldSalePrice, FieldPaymentMode, FieldDownPayment, FieldInstallmentMonths,
}

var allowed = map[domain.ContractType]map[string]bool{
	domain.ContractLease: set(FieldStartDate, FieldEndDate, FieldMonthlyRent, FieldDurationMonths,
		FieldCharges, FieldCaution, FieldAdvanceMonths, FieldBillingDayOfMonth,
		FieldGracePeriodDays, FieldLatePenaltyRate),
	domain.ContractSale: set(FieldStartDate, FieldEndDate, FieldSalePrice, FieldPaymentMode,
		FieldDownPayment, FieldInstallmentMonths),
	domain.ContractReservation: set(FieldStartDate, FieldExpirationDate),
}

// Validate checks raw against the rules of contract type ct and returns the
// typed terms, or a *domain.ValidationError listing every problem.
func (v *Validator) Validate(ct domain.ContractType, raw domain.RawTerms) (domain.Terms, error) {
	return v.ValidateAt(ct, raw, v.now())
}

// ValidateAt is Validate with an explicit reference time for the past-date
// rule. Amendments use the contract's creation time.
func (v *Validator) ValidateAt(ct domain.ContractType, raw domain.RawTerms, now time.Time) (domain.Terms, error) {
	c := &collector{}
	if !ct.Valid() {
		c.add(FieldContractType, domain.CodeFormat, fmt.Sprintf("unknown contract type %q", ct))
		return nil, c.err()
	}

	present := presentFields(raw)
	for _, f := range fieldOrder {
		if present[f] && !allowed[ct][f] {
			c.add(f, domain.CodeForbidden, fmt.Sprintf("not allowed on a %s contract", ct))
		}
	}

	start, ok := c.date(FieldStartDate, raw.StartDate, true)
	if ok {
		earliest := dayOf(now.Add(-v.cfg.ClockSkew))
		if start.Before(earliest) {
			c.add(FieldStartDate, domain.CodePast, "must not be in the past")
		}
	}

	var terms domain.Terms
	switch ct {
	case domain.ContractLease:
		terms = v.lease(c, raw, start)
	case domain.ContractSale:
		terms = v.sale(c, raw, start)
	case domain.ContractReservation:
		terms = v.reservation(c, raw, start)
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	return terms, nil
}

func (v *Validator) lease(c *collector, raw domain.RawTerms, start time.Time) domain.Terms {
	t := domain.LeaseTerms{StartDate: start}
	t.EndDate = c.endDate(raw.EndDate, start)

	if rent, ok := c.money(v.cfg.Currency, FieldMonthlyRent, raw.MonthlyRent, true); ok {
		if rent <= 0 {
			c.add(FieldMonthlyRent, domain.CodeRange, "must be greater than 0")
		}
		t.MonthlyRent = rent
	}
	if raw.DurationMonths == nil {
		c.add(FieldDurationMonths, domain.CodeRequired, "is required")
	} else if *raw.DurationMonths < 1 {
		c.add(FieldDurationMonths, domain.CodeRange, "must be at least 1")
	} else {
		t.DurationMonths = *raw.DurationMonths
	}

	t.Charges = c.optionalMoney(v.cfg.Currency, FieldCharges, raw.Charges)
	t.Caution = c.optionalMoney(v.cfg.Currency, FieldCaution, raw.Caution)
	t.AdvanceMonths = c.optionalInt(FieldAdvanceMonths, raw.AdvanceMonths, 0, -1)
	t.BillingDayOfMonth = c.optionalInt(FieldBillingDayOfMonth, raw.BillingDayOfMonth, 1, 28)
	t.GracePeriodDays = c.optionalInt(FieldGracePeriodDays, raw.GracePeriodDays, 0, -1)
	if raw.LatePenaltyRate != nil {
		if code, msg := CheckRate(*raw.LatePenaltyRate); code != "" {
			c.add(FieldLatePenaltyRate, code, msg)
		} else {
			rate := *raw.LatePenaltyRate
			t.LatePenaltyRate = &rate
		}
	}
	return t
}

func (v *Validator) sale(c *collector, raw domain.RawTerms, start time.Time) domain.Terms {
	t := domain.SaleTerms{StartDate: start}
	t.EndDate = c.endDate(raw.EndDate, start)

	price, priceOK := c.money(v.cfg.Currency, FieldSalePrice, raw.SalePrice, true)
	if priceOK {
		if price <= 0 {
			c.add(FieldSalePrice, domain.CodeRange, "must be greater than 0")
			priceOK = false
		}
		t.SalePrice = price
	}

	switch domain.PaymentMode(raw.PaymentMode) {
	case domain.PaymentCash:
		t.PaymentMode = domain.PaymentCash
		if raw.DownPayment != nil {
			c.add(FieldDownPayment, domain.CodeForbidden, "not allowed on a cash sale")
		}
		if raw.InstallmentMonths != nil {
			c.add(FieldInstallmentMonths, domain.CodeForbidden, "not allowed on a cash sale")
		}
	case domain.PaymentInstallment:
		t.PaymentMode = domain.PaymentInstallment
		if down, ok := c.money(v.cfg.Currency, FieldDownPayment, raw.DownPayment, true); ok {
			switch {
			case down < 0:
				c.add(FieldDownPayment, domain.CodeRange, "must be at least 0")
			case priceOK && down >= price:
				c.add(FieldDownPayment, domain.CodeRange, "must be less than salePrice")
			}
			t.DownPayment = down
		}
		if raw.InstallmentMonths == nil {
			c.add(FieldInstallmentMonths, domain.CodeRequired, "is required")
		} else if *raw.InstallmentMonths < 1 {
			c.add(FieldInstallmentMonths, domain.CodeRange, "must be at least 1")
		} else {
			t.InstallmentMonths = *raw.InstallmentMonths
		}
	case "":
		c.add(FieldPaymentMode, domain.CodeRequired, "is required")
	default:
		c.add(FieldPaymentMode, domain.CodeFormat, fmt.Sprintf("must be %q or %q", domain.PaymentCash, domain.PaymentInstallment))
	}
	return t
}

func (v *Validator) reservation(c *collector, raw domain.RawTerms, start time.Time) domain.Terms {
	t := domain.ReservationTerms{StartDate: start}
	exp, ok := c.date(FieldExpirationDate, raw.ExpirationDate, true)
	if !ok || start.IsZero() {
		return t
	}
	t.ExpirationDate = exp
	if !exp.After(start) {
		c.add(FieldExpirationDate, domain.CodeSequence, "must be after startDate")
		return t
	}
	if v.cfg.MaxHoldDays > 0 && exp.Sub(start) > time.Duration(v.cfg.MaxHoldDays)*24*time.Hour {
		c.add(FieldExpirationDate, domain.CodeRange, fmt.Sprintf("hold exceeds %d days", v.cfg.MaxHoldDays))
	}
	return t
}

func presentFields(raw domain.RawTerms) map[string]bool {
	return map[string]bool{
		FieldStartDate:         raw.StartDate != "",
		FieldEndDate:           raw.EndDate != "",
		FieldExpirationDate:    raw.ExpirationDate != "",
		FieldMonthlyRent:       raw.MonthlyRent != nil,
		FieldDurationMonths:    raw.DurationMonths != nil,
		FieldCharges:           raw.Charges != nil,
		FieldCaution:           raw.Caution != nil,
		FieldAdvanceMonths:     raw.AdvanceMonths != nil,
		FieldBillingDayOfMonth: raw.BillingDayOfMonth != nil,
		FieldGracePeriodDays:   raw.GracePeriodDays != nil,
		FieldLatePenaltyRate:   raw.LatePenaltyRate != nil,
		FieldSalePrice:         raw.SalePrice != nil,
		FieldPaymentMode:       raw.PaymentMode != "",
		FieldDownPayment:       raw.DownPayment != nil,
		FieldInstallmentMonths: raw.InstallmentMonths != nil,
	}
}

func set(fields ...string) map[string]bool {
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// dayOf truncates t to its UTC calendar date.
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// collector accumulates field errors so validation never stops at the first one.
type collector struct {
	errs []domain.FieldError
}

func (c *collector) add(field, code, msg string) {
	c.errs = append(c.errs, domain.FieldError{Field: field, Code: code, Message: msg})
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &domain.ValidationError{Errors: c.errs}
}

func (c *collector) date(field, value string, required bool) (time.Time, bool) {
	if value == "" {
		if required {
			c.add(field, domain.CodeRequired, "is required")
		}
		return time.Time{}, false
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		c.add(field, domain.CodeFormat, "must be a date formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (c *collector) endDate(value string, start time.Time) *time.Time {
	end, ok := c.date(FieldEndDate, value, false)
	if !ok {
		return nil
	}
	if !start.IsZero() && !end.After(start) {
		c.add(FieldEndDate, domain.CodeSequence, "must be after startDate")
	}
	return &end
}

func (c *collector) money(cur domain.Currency, field string, d *decimal.Decimal, required bool) (domain.Money, bool) {
	if d == nil {
		if required {
			c.add(field, domain.CodeRequired, "is required")
		}
		return 0, false
	}
	m, err := cur.ToMinor(*d)
	if err != nil {
		c.add(field, domain.CodePrecision, fmt.Sprintf("must be a whole number of %s minor units", cur.Code))
		return 0, false
	}
	return m, true
}

func (c *collector) optionalMoney(cur domain.Currency, field string, d *decimal.Decimal) *domain.Money {
	m, ok := c.money(cur, field, d, false)
	if !ok {
		return nil
	}
	if m < 0 {
		c.add(field, domain.CodeRange, "must be at least 0")
		return nil
	}
	return &m
}

// optionalInt checks lo <= v and, when hi >= 0, v <= hi.
func (c *collector) optionalInt(field string, v *int, lo, hi int) *int {
	if v == nil {
		return nil
	}
	if *v < lo || (hi >= 0 && *v > hi) {
		if hi >= 0 {
			c.add(field, domain.CodeRange, fmt.Sprintf("must be between %d and %d", lo, hi))
		} else {
			c.add(field, domain.CodeRange, fmt.Sprintf("must be at least %d", lo))
		}
		return nil
	}
	out := *v
	return &out
}
