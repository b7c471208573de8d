package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-attachments/internal/entities"
	apperrors "ticketing-attachments/pkg/errors"
)

type RoleRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Role, error)
}

type roleRepository struct {
	storage querier
}

func NewRoleRepository(storage *pgxpool.Pool) RoleRepositoryInterface {
	return &roleRepository{storage: storage}
}

func (r *roleRepository) FindByID(ctx context.Context, id uint64) (*entities.Role, error) {
	query := `SELECT id, name, permissions FROM roles WHERE id = $1`
	var role entities.Role
	err := r.storage.QueryRow(ctx, query, id).Scan(&role.ID, &role.Name, &role.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}
