package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-attachments/internal/entities"
	apperrors "ticketing-attachments/pkg/errors"
)

type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.User, error)
}

type userRepository struct {
	storage querier
}

func NewUserRepository(storage *pgxpool.Pool) UserRepositoryInterface {
	return &userRepository{storage: storage}
}

func (r *userRepository) FindByID(ctx context.Context, id uint64) (*entities.User, error) {
	query := `
		SELECT id, username, email, role_id, org_unit_id, scope_level, created_at
		FROM users WHERE id = $1`
	var u entities.User
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.RoleID, &u.OrgUnitID, &u.ScopeLevel, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
