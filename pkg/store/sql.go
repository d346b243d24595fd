package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mcclellann/fredDebt/pkg/models"
)

const debtColumns = `id, loan_name, original_amount, current_balance, interest_rate_annual, monthly_payment, insurance_cost, months_remaining, created_at, updated_at`

// sqlStore holds the queries shared by the SQLite and Postgres stores. Queries
// are written with ? placeholders and rebound for dialects that number them.
type sqlStore struct {
	db             *sql.DB
	numberedParams bool
}

func (s *sqlStore) rebind(query string) string {
	if !s.numberedParams {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetProfile retrieves the single stored profile.
func (s *sqlStore) GetProfile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, name, monthly_income, monthly_expenses, risk_profile, updated_at FROM profiles WHERE id = ?`), models.ProfileID)
	err := row.Scan(&p.ID, &p.Name, &p.MonthlyIncome, &p.MonthlyExpenses, &p.RiskProfile, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// SaveProfile inserts or replaces the stored profile.
func (s *sqlStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO profiles (id, name, monthly_income, monthly_expenses, risk_profile, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			monthly_income = excluded.monthly_income,
			monthly_expenses = excluded.monthly_expenses,
			risk_profile = excluded.risk_profile,
			updated_at = excluded.updated_at`),
		p.ID, p.Name, p.MonthlyIncome, p.MonthlyExpenses, string(p.RiskProfile), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// CreateDebt inserts a new debt.
func (s *sqlStore) CreateDebt(ctx context.Context, d *models.Debt) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO debts (`+debtColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		d.ID.String(), d.LoanName, d.OriginalAmount, d.CurrentBalance, d.InterestRateAnnual, d.MonthlyPayment, d.InsuranceCost, d.MonthsRemaining, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

// GetDebt retrieves a debt by its ID.
func (s *sqlStore) GetDebt(ctx context.Context, id uuid.UUID) (*models.Debt, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+debtColumns+` FROM debts WHERE id = ?`), id.String())
	d, err := scanDebt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("debt %s %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return d, nil
}

// UpdateDebt overwrites every field of an existing debt except created_at.
func (s *sqlStore) UpdateDebt(ctx context.Context, d *models.Debt) error {
	result, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE debts SET loan_name = ?, original_amount = ?, current_balance = ?, interest_rate_annual = ?, monthly_payment = ?, insurance_cost = ?, months_remaining = ?, updated_at = ? WHERE id = ?`),
		d.LoanName, d.OriginalAmount, d.CurrentBalance, d.InterestRateAnnual, d.MonthlyPayment, d.InsuranceCost, d.MonthsRemaining, d.UpdatedAt, d.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("debt %s %w", d.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteDebt removes a debt.
func (s *sqlStore) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM debts WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("debt %s %w", id, models.ErrNotFound)
	}
	return nil
}

// ListDebts retrieves all debts, oldest first.
func (s *sqlStore) ListDebts(ctx context.Context) ([]*models.Debt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+debtColumns+` FROM debts ORDER BY created_at ASC, loan_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	debts := []*models.Debt{}
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt row: %w", err)
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return debts, nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDebt(row scanner) (*models.Debt, error) {
	var d models.Debt
	var idStr string
	err := row.Scan(&idStr, &d.LoanName, &d.OriginalAmount, &d.CurrentBalance, &d.InterestRateAnnual, &d.MonthlyPayment, &d.InsuranceCost, &d.MonthsRemaining, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid debt id %q: %w", idStr, err)
	}
	return &d, nil
}
