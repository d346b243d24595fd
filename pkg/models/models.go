package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by storage when a profile or debt does not exist.
var ErrNotFound = errors.New("not found")

// ProfileID is the identity of the single stored profile.
const ProfileID = "current-profile"

type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
	RiskAggressive   RiskProfile = "aggressive"
)

// RiskProfiles lists the accepted risk profiles in display order.
var RiskProfiles = []RiskProfile{RiskConservative, RiskModerate, RiskAggressive}

// Valid reports whether r is one of RiskProfiles.
func (r RiskProfile) Valid() bool {
	for _, p := range RiskProfiles {
		if r == p {
			return true
		}
	}
	return false
}

type Profile struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income"`
	MonthlyExpenses decimal.Decimal `json:"monthly_expenses"`
	RiskProfile     RiskProfile     `json:"risk_profile"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Debt is a fixed-rate debt snapshot. Amounts are in the user's single currency.
type Debt struct {
	ID                 uuid.UUID       `json:"id"`
	LoanName           string          `json:"loan_name"`
	OriginalAmount     decimal.Decimal `json:"original_amount"`
	CurrentBalance     decimal.Decimal `json:"current_balance"`
	InterestRateAnnual decimal.Decimal `json:"interest_rate_annual"` // Nominal percent, e.g. 12 = 12%/year
	MonthlyPayment     decimal.Decimal `json:"monthly_payment"`      // Principal + interest + insurance
	InsuranceCost      decimal.Decimal `json:"insurance_cost"`       // Charged every period
	MonthsRemaining    int             `json:"months_remaining"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// AmortizationRow is one simulated period. Monetary fields are rounded to cents.
type AmortizationRow struct {
	MonthNumber      int             `json:"month_number"`
	PaymentDate      time.Time       `json:"payment_date"`
	PrincipalPaid    decimal.Decimal `json:"principal_paid"`
	InterestPaid     decimal.Decimal `json:"interest_paid"`
	InsurancePaid    decimal.Decimal `json:"insurance_paid"`
	TotalPayment     decimal.Decimal `json:"total_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// AmortizationSummary totals a schedule. Totals are rounded from full-precision
// running sums, so they can differ by a cent from the sum of the rounded rows.
type AmortizationSummary struct {
	TotalPrincipal decimal.Decimal `json:"total_principal"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalInsurance decimal.Decimal `json:"total_insurance"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Months         int             `json:"months"`
	PayoffDate     time.Time       `json:"payoff_date"`
}

type AmortizationResult struct {
	Schedule []AmortizationRow   `json:"schedule"`
	Summary  AmortizationSummary `json:"summary"`
}
