package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "ticketing-attachments/pkg/errors"
)

// OrgUnitRepositoryInterface покрывает контракт authz.OrgUnitLookup.
type OrgUnitRepositoryInterface interface {
	FindPathAndType(ctx context.Context, id uint64) (path string, unitType string, err error)
}

type orgUnitRepository struct {
	storage querier
}

func NewOrgUnitRepository(storage *pgxpool.Pool) OrgUnitRepositoryInterface {
	return &orgUnitRepository{storage: storage}
}

func (r *orgUnitRepository) FindPathAndType(ctx context.Context, id uint64) (string, string, error) {
	query := `SELECT path, type FROM org_units WHERE id = $1`
	var path, unitType string
	err := r.storage.QueryRow(ctx, query, id).Scan(&path, &unitType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", apperrors.ErrNotFound
		}
		return "", "", err
	}
	return path, unitType, nil
}
