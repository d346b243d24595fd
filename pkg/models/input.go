package models

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError lists every rejected field of an input with a user-facing message.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ProfileInput is the user-editable part of a Profile.
type ProfileInput struct {
	Name            string          `json:"name"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income"`
	MonthlyExpenses decimal.Decimal `json:"monthly_expenses"`
	RiskProfile     RiskProfile     `json:"risk_profile"`
}

// Validate returns a *ValidationError when any field is rejected.
func (in ProfileInput) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.add("name", "Name is required")
	}
	if in.MonthlyIncome.IsNegative() {
		verr.add("monthly_income", "Monthly income cannot be negative")
	}
	if in.MonthlyExpenses.IsNegative() {
		verr.add("monthly_expenses", "Monthly expenses cannot be negative")
	}
	if !in.RiskProfile.Valid() {
		verr.add("risk_profile", fmt.Sprintf("Risk profile must be one of %v", RiskProfiles))
	}
	return verr.orNil()
}

// MaxMonthsRemaining is the largest term a debt can be stored with. It matches
// the range of the INTEGER column holding it.
const MaxMonthsRemaining = math.MaxInt32

// DebtInput is the user-editable part of a Debt. MonthsRemaining is decoded as a
// decimal so that "12" and 12.5 are both accepted by the decoder and judged here.
type DebtInput struct {
	LoanName           string          `json:"loan_name"`
	OriginalAmount     decimal.Decimal `json:"original_amount"`
	CurrentBalance     decimal.Decimal `json:"current_balance"`
	InterestRateAnnual decimal.Decimal `json:"interest_rate_annual"`
	MonthlyPayment     decimal.Decimal `json:"monthly_payment"`
	InsuranceCost      decimal.Decimal `json:"insurance_cost"`
	MonthsRemaining    decimal.Decimal `json:"months_remaining"`
}

// Validate returns a *ValidationError when any field is rejected.
func (in DebtInput) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.LoanName) == "" {
		verr.add("loan_name", "Loan name is required")
	}
	if in.OriginalAmount.IsNegative() {
		verr.add("original_amount", "Original amount cannot be negative")
	}
	if in.CurrentBalance.IsNegative() {
		verr.add("current_balance", "Current balance cannot be negative")
	}
	if in.InterestRateAnnual.IsNegative() {
		verr.add("interest_rate_annual", "Interest rate cannot be negative")
	}
	if !in.MonthlyPayment.IsPositive() {
		verr.add("monthly_payment", "Monthly payment must be greater than zero")
	}
	if in.InsuranceCost.IsNegative() {
		verr.add("insurance_cost", "Insurance cost cannot be negative")
	}
	if !in.MonthsRemaining.IsInteger() {
		verr.add("months_remaining", "Months remaining must be an integer")
	} else if !in.MonthsRemaining.IsPositive() {
		verr.add("months_remaining", "Months remaining must be greater than zero")
	} else if in.MonthsRemaining.GreaterThan(decimal.NewFromInt(MaxMonthsRemaining)) {
		verr.add("months_remaining", fmt.Sprintf("Months remaining cannot exceed %d", MaxMonthsRemaining))
	}
	return verr.orNil()
}

// Apply copies the validated input onto d, leaving identity and timestamps alone.
func (in DebtInput) Apply(d *Debt) {
	d.LoanName = strings.TrimSpace(in.LoanName)
	d.OriginalAmount = in.OriginalAmount
	d.CurrentBalance = in.CurrentBalance
	d.InterestRateAnnual = in.InterestRateAnnual
	d.MonthlyPayment = in.MonthlyPayment
	d.InsuranceCost = in.InsuranceCost
	d.MonthsRemaining = int(in.MonthsRemaining.IntPart())
}

// Apply copies the validated input onto p.
func (in ProfileInput) Apply(p *Profile) {
	p.ID = ProfileID
	p.Name = strings.TrimSpace(in.Name)
	p.MonthlyIncome = in.MonthlyIncome
	p.MonthlyExpenses = in.MonthlyExpenses
	p.RiskProfile = in.RiskProfile
}
