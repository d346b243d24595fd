// Package amortization simulates the month-by-month repayment of a fixed-rate debt.
//
// The simulation runs in float64. Every reported figure is rounded to cents on the
// way out, while the running totals keep full precision until the summary is built.
// As a result Summary.TotalPaid may differ by a cent or two from the sum of the
// rounded row totals.
package amortization

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mcclellann/fredDebt/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	// MaxPeriods bounds every schedule regardless of the debt's terms.
	MaxPeriods = 1200
	// extraPeriods is how far past MonthsRemaining a schedule may run.
	extraPeriods = 120
	// paidOffEpsilon treats sub-cent residue as paid off.
	paidOffEpsilon = 0.01
)

// ErrPaymentInsufficient matches any *PaymentInsufficientError.
var ErrPaymentInsufficient = errors.New("payment insufficient")

// PaymentInsufficientError reports a fixed payment that cannot cover a period's
// interest plus insurance, so the balance would never go down.
type PaymentInsufficientError struct {
	Payment decimal.Decimal
}

func (e *PaymentInsufficientError) Error() string {
	return fmt.Sprintf("monthly payment %s is too low to cover interest and insurance", e.Payment.StringFixed(2))
}

func (e *PaymentInsufficientError) Is(target error) bool {
	return target == ErrPaymentInsufficient
}

// Simulate builds the schedule for debt starting today.
func Simulate(debt models.Debt) (*models.AmortizationResult, error) {
	return SimulateAt(debt, time.Now())
}

// SimulateAt builds the schedule for debt with the first payment dated start.
// Later payments advance with time.AddDate, so an anchor on the 29th-31st drifts
// into the following month whenever the target month is shorter (Jan 31 -> Mar 3).
//
// With a zero interest rate an insufficient payment is not reported; the
// schedule simply runs until the period limit.
func SimulateAt(debt models.Debt, start time.Time) (*models.AmortizationResult, error) {
	monthlyRate := debt.InterestRateAnnual.InexactFloat64() / 100 / 12
	payment := debt.MonthlyPayment.InexactFloat64()
	insurance := debt.InsuranceCost.InexactFloat64()

	balance := debt.CurrentBalance.InexactFloat64()
	var totalPrincipal, totalInterest, totalInsurance float64

	// Clamp before adding so huge MonthsRemaining values cannot overflow.
	maxIterations := min(max(debt.MonthsRemaining, 1), MaxPeriods-extraPeriods) + extraPeriods
	schedule := []models.AmortizationRow{}
	paymentDate := start

	for period := 1; balance > paidOffEpsilon && period <= maxIterations; period++ {
		if period > 1 {
			paymentDate = paymentDate.AddDate(0, 1, 0)
		}

		interestPaid := 0.0
		if monthlyRate > 0 {
			interestPaid = balance * monthlyRate
		}
		principalPaid := payment - interestPaid - insurance
		if principalPaid > balance {
			principalPaid = balance
		} else {
			principalPaid = math.Max(principalPaid, 0)
		}

		if principalPaid <= 0 && monthlyRate > 0 {
			return nil, &PaymentInsufficientError{Payment: cents(payment)}
		}

		balance = math.Max(balance-principalPaid, 0)

		totalPrincipal += principalPaid
		totalInterest += interestPaid
		totalInsurance += insurance

		schedule = append(schedule, models.AmortizationRow{
			MonthNumber:      period,
			PaymentDate:      paymentDate,
			PrincipalPaid:    cents(principalPaid),
			InterestPaid:     cents(interestPaid),
			InsurancePaid:    cents(insurance),
			TotalPayment:     cents(payment),
			RemainingBalance: cents(balance),
		})
	}

	payoffDate := start
	if len(schedule) > 0 {
		payoffDate = schedule[len(schedule)-1].PaymentDate
	}

	return &models.AmortizationResult{
		Schedule: schedule,
		Summary: models.AmortizationSummary{
			TotalPrincipal: cents(totalPrincipal),
			TotalInterest:  cents(totalInterest),
			TotalInsurance: cents(totalInsurance),
			TotalPaid:      cents(totalPrincipal + totalInterest + totalInsurance),
			Months:         len(schedule),
			PayoffDate:     payoffDate,
		},
	}, nil
}

// cents rounds the exact binary value of v, so 1.005 (stored as 1.00499...)
// becomes 1.00.
func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloatWithExponent(v, -2)
}
