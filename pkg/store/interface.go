package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/fredDebt/pkg/models"
)

// Storage defines the persistence operations for the profile and debts.
// Lookups of missing rows return an error wrapping models.ErrNotFound.
type Storage interface {
	GetProfile(ctx context.Context) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error

	CreateDebt(ctx context.Context, debt *models.Debt) error
	GetDebt(ctx context.Context, id uuid.UUID) (*models.Debt, error)
	UpdateDebt(ctx context.Context, debt *models.Debt) error
	DeleteDebt(ctx context.Context, id uuid.UUID) error
	ListDebts(ctx context.Context) ([]*models.Debt, error)

	Close() error
}

// Open returns the Storage for driver ("sqlite" or "postgres").
func Open(driver, dataSourceName string) (Storage, error) {
	switch driver {
	case "sqlite", "sqlite3":
		s, err := NewSQLiteStore(dataSourceName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(dataSourceName)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
