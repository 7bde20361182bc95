package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beesaferoot/lotassign/domain"
)

var fixedNow = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return New(DefaultConfig(), WithClock(func() time.Time { return fixedNow }))
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(v int) *int { return &v }

func validationErr(t *testing.T, err error) *domain.ValidationError {
	t.Helper()
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected *domain.ValidationError, got %v", err)
	return ve
}

func TestValidate_Lease(t *testing.T) {
	v := newTestValidator()

	t.Run("minimal lease", func(t *testing.T) {
		terms, err := v.Validate(domain.ContractLease, domain.RawTerms{
			StartDate:      "2026-03-01",
			MonthlyRent:    dec("150000"),
			DurationMonths: intp(12),
		})
		require.NoError(t, err)
		lease, ok := terms.(domain.LeaseTerms)
		require.True(t, ok)
		assert.Equal(t, domain.Money(150000), lease.MonthlyRent)
		assert.Equal(t, 12, lease.DurationMonths)
		assert.Nil(t, lease.Caution)
		assert.Nil(t, lease.AdvanceMonths)
	})

	t.Run("optional fields carried", func(t *testing.T) {
		terms, err := v.Validate(domain.ContractLease, domain.RawTerms{
			StartDate:         "2026-03-10",
			EndDate:           "2027-03-09",
			MonthlyRent:       dec("150000"),
			DurationMonths:    intp(12),
			Charges:           dec("10000"),
			Caution:           dec("300000"),
			AdvanceMonths:     intp(2),
			BillingDayOfMonth: intp(10),
			GracePeriodDays:   intp(5),
			LatePenaltyRate:   dec("0.05"),
		})
		require.NoError(t, err)
		lease := terms.(domain.LeaseTerms)
		require.NotNil(t, lease.Caution)
		assert.Equal(t, domain.Money(300000), *lease.Caution)
		assert.Equal(t, 10, *lease.BillingDayOfMonth)
		assert.True(t, lease.LatePenaltyRate.Equal(decimal.RequireFromString("0.05")))
		require.NotNil(t, lease.EndDate)
	})

	t.Run("collects every problem", func(t *testing.T) {
		_, err := v.Validate(domain.ContractLease, domain.RawTerms{
			MonthlyRent:       dec("0"),
			DurationMonths:    intp(0),
			BillingDayOfMonth: intp(31),
			Caution:           dec("-1"),
		})
		ve := validationErr(t, err)
		assert.ElementsMatch(t,
			[]string{FieldStartDate, FieldMonthlyRent, FieldDurationMonths, FieldCaution, FieldBillingDayOfMonth},
			ve.Fields())
	})

	t.Run("end date must follow start", func(t *testing.T) {
		_, err := v.Validate(domain.ContractLease, domain.RawTerms{
			StartDate:      "2026-04-01",
			EndDate:        "2026-04-01",
			MonthlyRent:    dec("1000"),
			DurationMonths: intp(1),
		})
		ve := validationErr(t, err)
		assert.Equal(t, []string{FieldEndDate}, ve.Fields())
		assert.Equal(t, domain.CodeSequence, ve.Errors[0].Code)
	})

	t.Run("late penalty rate bounds", func(t *testing.T) {
		cases := map[string]string{
			"-0.01":     domain.CodeRange,
			"1.01":      domain.CodeRange,
			"1000":      domain.CodeRange,
			"0.0000001": domain.CodePrecision,
		}
		for rate, code := range cases {
			_, err := v.Validate(domain.ContractLease, domain.RawTerms{
				StartDate:       "2026-04-01",
				MonthlyRent:     dec("1000"),
				DurationMonths:  intp(1),
				LatePenaltyRate: dec(rate),
			})
			ve := validationErr(t, err)
			assert.Equal(t, []string{FieldLatePenaltyRate}, ve.Fields(), rate)
			assert.Equal(t, code, ve.Errors[0].Code, rate)
		}

		terms, err := v.Validate(domain.ContractLease, domain.RawTerms{
			StartDate:       "2026-04-01",
			MonthlyRent:     dec("1000"),
			DurationMonths:  intp(1),
			LatePenaltyRate: dec("0.0150000"),
		})
		require.NoError(t, err)
		assert.True(t, terms.(domain.LeaseTerms).LatePenaltyRate.Equal(decimal.RequireFromString("0.015")))
	})
}

func TestValidate_TypeFieldExclusivity(t *testing.T) {
	v := newTestValidator()

	t.Run("salePrice on lease", func(t *testing.T) {
		_, err := v.Validate(domain.ContractLease, domain.RawTerms{
			StartDate:      "2026-03-01",
			MonthlyRent:    dec("150000"),
			DurationMonths: intp(12),
			SalePrice:      dec("5000000"),
		})
		ve := validationErr(t, err)
		require.True(t, ve.Has(FieldSalePrice))
		assert.Equal(t, domain.CodeForbidden, ve.Errors[0].Code)
	})

	t.Run("monthlyRent on sale", func(t *testing.T) {
		_, err := v.Validate(domain.ContractSale, domain.RawTerms{
			StartDate:   "2026-03-01",
			SalePrice:   dec("5000000"),
			PaymentMode: "cash",
			MonthlyRent: dec("150000"),
		})
		ve := validationErr(t, err)
		assert.Equal(t, []string{FieldMonthlyRent}, ve.Fields())
	})

	t.Run("installment fields on cash sale", func(t *testing.T) {
		_, err := v.Validate(domain.ContractSale, domain.RawTerms{
			StartDate:         "2026-03-01",
			SalePrice:         dec("5000000"),
			PaymentMode:       "cash",
			DownPayment:       dec("1000000"),
			InstallmentMonths: intp(3),
		})
		ve := validationErr(t, err)
		assert.Equal(t, []string{FieldDownPayment, FieldInstallmentMonths}, ve.Fields())
	})

	t.Run("lease fields on reservation", func(t *testing.T) {
		_, err := v.Validate(domain.ContractReservation, domain.RawTerms{
			StartDate:      "2026-03-01",
			ExpirationDate: "2026-03-15",
			Caution:        dec("1"),
			EndDate:        "2026-03-20",
		})
		ve := validationErr(t, err)
		assert.Equal(t, []string{FieldEndDate, FieldCaution}, ve.Fields())
	})
}

func TestValidate_Sale(t *testing.T) {
	v := newTestValidator()

	t.Run("installment", func(t *testing.T) {
		terms, err := v.Validate(domain.ContractSale, domain.RawTerms{
			StartDate:         "2026-03-01",
			SalePrice:         dec("5000000"),
			PaymentMode:       "installment",
			DownPayment:       dec("1000000"),
			InstallmentMonths: intp(3),
		})
		require.NoError(t, err)
		sale := terms.(domain.SaleTerms)
		assert.Equal(t, domain.PaymentInstallment, sale.PaymentMode)
		assert.Equal(t, domain.Money(1000000), sale.DownPayment)
		assert.Equal(t, domain.TriggerInstallmentSale, domain.TriggerFor(sale))
	})

	t.Run("down payment not below price", func(t *testing.T) {
		_, err := v.Validate(domain.ContractSale, domain.RawTerms{
			StartDate:         "2026-03-01",
			SalePrice:         dec("5000000"),
			PaymentMode:       "installment",
			DownPayment:       dec("5000000"),
			InstallmentMonths: intp(0),
		})
		ve := validationErr(t, err)
		assert.Equal(t, []string{FieldDownPayment, FieldInstallmentMonths}, ve.Fields())
	})

	t.Run("payment mode required and known", func(t *testing.T) {
		_, err := v.Validate(domain.ContractSale, domain.RawTerms{StartDate: "2026-03-01", SalePrice: dec("10")})
		assert.True(t, validationErr(t, err).Has(FieldPaymentMode))

		_, err = v.Validate(domain.ContractSale, domain.RawTerms{StartDate: "2026-03-01", SalePrice: dec("10"), PaymentMode: "barter"})
		ve := validationErr(t, err)
		assert.Equal(t, domain.CodeFormat, ve.Errors[0].Code)
	})

	t.Run("sub-unit precision rejected", func(t *testing.T) {
		_, err := v.Validate(domain.ContractSale, domain.RawTerms{StartDate: "2026-03-01", SalePrice: dec("10.5"), PaymentMode: "cash"})
		ve := validationErr(t, err)
		assert.Equal(t, domain.CodePrecision, ve.Errors[0].Code)
	})
}

func TestValidate_Reservation(t *testing.T) {
	v := newTestValidator()

	t.Run("within hold period", func(t *testing.T) {
		terms, err := v.Validate(domain.ContractReservation, domain.RawTerms{
			StartDate:      "2026-03-01",
			ExpirationDate: "2026-03-31",
		})
		require.NoError(t, err)
		r := terms.(domain.ReservationTerms)
		assert.Equal(t, 30*24*time.Hour, r.ExpirationDate.Sub(r.StartDate))
	})

	t.Run("forty days exceeds thirty day hold", func(t *testing.T) {
		_, err := v.Validate(domain.ContractReservation, domain.RawTerms{
			StartDate:      "2026-03-01",
			ExpirationDate: "2026-04-10",
		})
		ve := validationErr(t, err)
		assert.Equal(t, []string{FieldExpirationDate}, ve.Fields())
		assert.Equal(t, domain.CodeRange, ve.Errors[0].Code)
	})

	t.Run("expiration before start", func(t *testing.T) {
		_, err := v.Validate(domain.ContractReservation, domain.RawTerms{
			StartDate:      "2026-03-05",
			ExpirationDate: "2026-03-02",
		})
		assert.Equal(t, domain.CodeSequence, validationErr(t, err).Errors[0].Code)
	})
}

func TestValidate_StartDate(t *testing.T) {
	v := newTestValidator()
	base := domain.RawTerms{MonthlyRent: dec("1"), DurationMonths: intp(1)}

	base.StartDate = "2026-02-28"
	_, err := v.Validate(domain.ContractLease, base)
	assert.Equal(t, domain.CodePast, validationErr(t, err).Errors[0].Code)

	base.StartDate = "01/03/2026"
	_, err = v.Validate(domain.ContractLease, base)
	assert.Equal(t, domain.CodeFormat, validationErr(t, err).Errors[0].Code)

	t.Run("skew tolerance reaches back over midnight", func(t *testing.T) {
		justAfterMidnight := time.Date(2026, time.March, 1, 0, 5, 0, 0, time.UTC)
		sv := New(DefaultConfig(), WithClock(func() time.Time { return justAfterMidnight }))
		base.StartDate = "2026-02-28"
		_, err := sv.Validate(domain.ContractLease, base)
		assert.NoError(t, err)
	})
}

func TestValidate_UnknownType(t *testing.T) {
	_, err := newTestValidator().Validate("rent-to-own", domain.RawTerms{})
	assert.Equal(t, []string{FieldContractType}, validationErr(t, err).Fields())
}

func TestValidate_Idempotent(t *testing.T) {
	v := newTestValidator()
	raw := domain.RawTerms{
		StartDate:   "2026-03-01",
		SalePrice:   dec("5000000"),
		MonthlyRent: dec("1"),
		PaymentMode: "installment",
	}
	_, first := v.Validate(domain.ContractSale, raw)
	_, second := v.Validate(domain.ContractSale, raw)
	assert.Equal(t, first, second)

	good := domain.RawTerms{StartDate: "2026-03-01", ExpirationDate: "2026-03-10"}
	t1, err1 := v.Validate(domain.ContractReservation, good)
	t2, err2 := v.Validate(domain.ContractReservation, good)
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, t1, t2)
}
