package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredDebt/pkg/amortization"
	"github.com/mcclellann/fredDebt/pkg/cache"
	"github.com/mcclellann/fredDebt/pkg/models"
	"github.com/mcclellann/fredDebt/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Planner handles the business logic for the profile, debts and their simulations.
type Planner struct {
	storage store.Storage
	cache   cache.Cache
	log     *logrus.Logger
	now     func() time.Time

	// mu orders cache writes against invalidations. writes counts debt
	// writes; a result is only cached if no write happened since its debt was read.
	mu     sync.Mutex
	writes uint64
}

// NewPlanner creates a Planner over the given storage and simulation cache.
func NewPlanner(s store.Storage, c cache.Cache, log *logrus.Logger) *Planner {
	return &Planner{
		storage: s,
		cache:   c,
		log:     log,
		now:     time.Now,
	}
}

// DebtSimulation pairs a debt with its simulation outcome. Exactly one of Result
// and Err is set.
type DebtSimulation struct {
	Debt   *models.Debt
	Result *models.AmortizationResult
	Err    error
}

// GetProfile retrieves the stored profile.
func (p *Planner) GetProfile(ctx context.Context) (*models.Profile, error) {
	return p.storage.GetProfile(ctx)
}

// SaveProfile validates input and stores it as the current profile.
func (p *Planner) SaveProfile(ctx context.Context, in models.ProfileInput) (*models.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	profile := &models.Profile{UpdatedAt: p.now()}
	in.Apply(profile)

	if err := p.storage.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"risk_profile": profile.RiskProfile,
	}).Info("Profile saved")
	return profile, nil
}

// ListDebts retrieves all debts.
func (p *Planner) ListDebts(ctx context.Context) ([]*models.Debt, error) {
	return p.storage.ListDebts(ctx)
}

// GetDebt retrieves a debt by its ID.
func (p *Planner) GetDebt(ctx context.Context, id uuid.UUID) (*models.Debt, error) {
	return p.storage.GetDebt(ctx, id)
}

// SaveDebt validates input and creates a debt, or updates the debt with the given
// id. The debt's simulation is recomputed afterwards. A debt whose payment is
// insufficient is still saved; the failure surfaces when it is simulated.
func (p *Planner) SaveDebt(ctx context.Context, id *uuid.UUID, in models.DebtInput) (*models.Debt, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := p.now()
	var debt *models.Debt
	if id == nil {
		debt = &models.Debt{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		in.Apply(debt)
		if err := p.storage.CreateDebt(ctx, debt); err != nil {
			return nil, fmt.Errorf("failed to store debt: %w", err)
		}
	} else {
		existing, err := p.storage.GetDebt(ctx, *id)
		if err != nil {
			return nil, err
		}
		debt = existing
		in.Apply(debt)
		debt.UpdatedAt = now
		if err := p.storage.UpdateDebt(ctx, debt); err != nil {
			return nil, fmt.Errorf("failed to update debt: %w", err)
		}
	}

	entry := p.log.WithFields(logrus.Fields{
		"debt_id":   debt.ID,
		"loan_name": debt.LoanName,
	})
	entry.Info("Debt saved")

	// Recompute on write so readers never see a schedule for stale terms.
	seen := p.invalidate(ctx, debt.ID)
	if _, err := p.simulate(ctx, debt, seen); err != nil {
		entry.WithError(err).Warn("Saved debt cannot be amortized")
	}
	return debt, nil
}

// DeleteDebt removes a debt and its cached simulation.
func (p *Planner) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	if err := p.storage.DeleteDebt(ctx, id); err != nil {
		return err
	}
	p.invalidate(ctx, id)
	p.log.WithField("debt_id", id).Info("Debt deleted")
	return nil
}

// Simulate returns the amortization schedule for the debt with the given id.
func (p *Planner) Simulate(ctx context.Context, id uuid.UUID) (*models.AmortizationResult, error) {
	seen := p.writeCount()
	debt, err := p.storage.GetDebt(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.simulate(ctx, debt, seen)
}

// SimulateAll simulates every debt. A debt that cannot be amortized carries its
// error instead of failing the whole batch.
func (p *Planner) SimulateAll(ctx context.Context) ([]DebtSimulation, error) {
	seen := p.writeCount()
	debts, err := p.storage.ListDebts(ctx)
	if err != nil {
		return nil, err
	}

	sims := make([]DebtSimulation, 0, len(debts))
	for _, debt := range debts {
		result, err := p.simulate(ctx, debt, seen)
		sims = append(sims, DebtSimulation{Debt: debt, Result: result, Err: err})
	}
	return sims, nil
}

// RefreshSimulations recomputes every cached simulation. Schedules are anchored
// on the day they are computed, so cached ones go stale as days pass.
func (p *Planner) RefreshSimulations(ctx context.Context) error {
	seen := p.writeCount()
	debts, err := p.storage.ListDebts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list debts for refresh: %w", err)
	}

	infeasible := 0
	for _, debt := range debts {
		p.evict(ctx, debt.ID)
		if _, err := p.simulate(ctx, debt, seen); err != nil {
			infeasible++
		}
	}

	p.log.WithFields(logrus.Fields{
		"debts":      len(debts),
		"infeasible": infeasible,
	}).Info("Simulations refreshed")
	return nil
}

// simulate returns the cached result for debt or computes it. seen is the write
// count taken before debt was read; a fresh result is cached only while it holds.
func (p *Planner) simulate(ctx context.Context, debt *models.Debt, seen uint64) (*models.AmortizationResult, error) {
	key := debt.ID.String()
	if result, ok := p.cache.Get(ctx, key); ok {
		p.log.WithField("debt_id", key).Debug("Simulation cache hit")
		return result, nil
	}

	result, err := amortization.SimulateAt(*debt, p.now())
	if err != nil {
		if errors.Is(err, amortization.ErrPaymentInsufficient) {
			p.log.WithFields(logrus.Fields{
				"debt_id":         key,
				"monthly_payment": debt.MonthlyPayment.StringFixed(2),
			}).Warn("Debt payment does not cover interest and insurance")
		}
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writes != seen {
		p.log.WithField("debt_id", key).Debug("Debts changed during simulation, not caching")
		return result, nil
	}
	if err := p.cache.Set(ctx, key, result); err != nil {
		p.log.WithError(err).WithField("debt_id", key).Warn("Failed to cache simulation")
	}
	return result, nil
}

func (p *Planner) writeCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// invalidate records a write to the debt with the given id and evicts its
// result. It returns the new write count.
func (p *Planner) invalidate(ctx context.Context, id uuid.UUID) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
	p.evict(ctx, id)
	return p.writes
}

func (p *Planner) evict(ctx context.Context, id uuid.UUID) {
	if err := p.cache.Delete(ctx, id.String()); err != nil {
		p.log.WithError(err).WithField("debt_id", id).Warn("Failed to evict simulation")
	}
}

// DebtOverview summarizes one debt for the overview.
type DebtOverview struct {
	DebtID         uuid.UUID                   `json:"debt_id"`
	LoanName       string                      `json:"loan_name"`
	CurrentBalance decimal.Decimal             `json:"current_balance"`
	MonthlyPayment decimal.Decimal             `json:"monthly_payment"`
	Summary        *models.AmortizationSummary `json:"summary,omitempty"`
	Error          string                      `json:"error,omitempty"`
}

// Overview combines the profile with totals across all debts.
type Overview struct {
	Profile             *models.Profile  `json:"profile,omitempty"`
	Debts               []DebtOverview   `json:"debts"`
	TotalBalance        decimal.Decimal  `json:"total_balance"`
	TotalMonthlyPayment decimal.Decimal  `json:"total_monthly_payment"`
	MonthlySurplus      *decimal.Decimal `json:"monthly_surplus,omitempty"` // Income - expenses - debt payments
	InfeasibleDebts     int              `json:"infeasible_debts"`
}

// Overview builds the profile-wide view of every debt and its simulation.
func (p *Planner) Overview(ctx context.Context) (*Overview, error) {
	profile, err := p.storage.GetProfile(ctx)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	sims, err := p.SimulateAll(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		Profile:             profile,
		Debts:               make([]DebtOverview, 0, len(sims)),
		TotalBalance:        decimal.Zero,
		TotalMonthlyPayment: decimal.Zero,
	}
	for _, sim := range sims {
		d := DebtOverview{
			DebtID:         sim.Debt.ID,
			LoanName:       sim.Debt.LoanName,
			CurrentBalance: sim.Debt.CurrentBalance,
			MonthlyPayment: sim.Debt.MonthlyPayment,
		}
		if sim.Err != nil {
			d.Error = sim.Err.Error()
			ov.InfeasibleDebts++
		} else {
			summary := sim.Result.Summary
			d.Summary = &summary
		}
		ov.Debts = append(ov.Debts, d)
		ov.TotalBalance = ov.TotalBalance.Add(sim.Debt.CurrentBalance)
		ov.TotalMonthlyPayment = ov.TotalMonthlyPayment.Add(sim.Debt.MonthlyPayment)
	}

	if profile != nil {
		surplus := profile.MonthlyIncome.Sub(profile.MonthlyExpenses).Sub(ov.TotalMonthlyPayment)
		ov.MonthlySurplus = &surplus
	}
	return ov, nil
}
