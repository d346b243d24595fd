package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredDebt/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test_store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDebt(name string, created time.Time) *models.Debt {
	return &models.Debt{
		ID:                 uuid.New(),
		LoanName:           name,
		OriginalAmount:     decimal.NewFromFloat(2000.0),
		CurrentBalance:     decimal.NewFromFloat(1500.55),
		InterestRateAnnual: decimal.NewFromFloat(7.25),
		MonthlyPayment:     decimal.NewFromFloat(120.10),
		InsuranceCost:      decimal.NewFromFloat(4.5),
		MonthsRemaining:    15,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

// exerciseStorage runs the same contract checks against every implementation.
func exerciseStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	t.Run("profile", func(t *testing.T) {
		_, err := s.GetProfile(ctx)
		require.True(t, errors.Is(err, models.ErrNotFound), "expected not found, got %v", err)

		p := &models.Profile{
			ID:              models.ProfileID,
			Name:            "Alex",
			MonthlyIncome:   decimal.NewFromInt(5200),
			MonthlyExpenses: decimal.NewFromFloat(3100.40),
			RiskProfile:     models.RiskModerate,
			UpdatedAt:       time.Now().UTC(),
		}
		require.NoError(t, s.SaveProfile(ctx, p))

		p.Name = "Alex B"
		p.RiskProfile = models.RiskAggressive
		require.NoError(t, s.SaveProfile(ctx, p))

		fetched, err := s.GetProfile(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Alex B", fetched.Name)
		assert.Equal(t, models.RiskAggressive, fetched.RiskProfile)
		assert.True(t, fetched.MonthlyExpenses.Equal(p.MonthlyExpenses), "expenses %s", fetched.MonthlyExpenses)
	})

	t.Run("debts", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Second)
		first := testDebt("Car", base)
		second := testDebt("Apartment", base.Add(time.Minute))
		require.NoError(t, s.CreateDebt(ctx, second))
		require.NoError(t, s.CreateDebt(ctx, first))

		fetched, err := s.GetDebt(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, fetched.ID)
		assert.Equal(t, "Car", fetched.LoanName)
		assert.True(t, fetched.CurrentBalance.Equal(first.CurrentBalance), "balance %s", fetched.CurrentBalance)
		assert.True(t, fetched.InterestRateAnnual.Equal(first.InterestRateAnnual), "rate %s", fetched.InterestRateAnnual)
		assert.Equal(t, 15, fetched.MonthsRemaining)
		assert.WithinDuration(t, first.CreatedAt, fetched.CreatedAt, time.Second)

		debts, err := s.ListDebts(ctx)
		require.NoError(t, err)
		require.Len(t, debts, 2)
		assert.Equal(t, first.ID, debts[0].ID)
		assert.Equal(t, second.ID, debts[1].ID)

		first.MonthlyPayment = decimal.NewFromInt(300)
		first.MonthsRemaining = 6
		first.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, s.UpdateDebt(ctx, first))

		fetched, err = s.GetDebt(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, fetched.MonthlyPayment.Equal(decimal.NewFromInt(300)))
		assert.Equal(t, 6, fetched.MonthsRemaining)

		require.NoError(t, s.DeleteDebt(ctx, second.ID))
		_, err = s.GetDebt(ctx, second.ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		missing := testDebt("Ghost", base)
		assert.True(t, errors.Is(s.UpdateDebt(ctx, missing), models.ErrNotFound))
		assert.True(t, errors.Is(s.DeleteDebt(ctx, missing.ID), models.ErrNotFound))
	})
}

func TestSQLiteStore(t *testing.T) {
	exerciseStorage(t, newSQLiteStore(t))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewSQLiteStore(dbFile)
	require.NoError(t, err)
	debt := testDebt("Card", time.Now().UTC())
	require.NoError(t, s.CreateDebt(context.Background(), debt))
	require.NoError(t, s.Close())

	// Migrations must be a no-op the second time round.
	s, err = NewSQLiteStore(dbFile)
	require.NoError(t, err)
	defer s.Close()

	fetched, err := s.GetDebt(context.Background(), debt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Card", fetched.LoanName)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	s, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec(`TRUNCATE debts, profiles`)
	require.NoError(t, err)

	exerciseStorage(t, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mongo", "whatever")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	s := &sqlStore{numberedParams: true}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", s.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	s.numberedParams = false
	assert.Equal(t, "x = ?", s.rebind("x = ?"))
}
