package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-attachments/internal/entities"
	apperrors "ticketing-attachments/pkg/errors"
)

type TicketRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Ticket, error)
	FindMessagesByTicketID(ctx context.Context, ticketID uint64) ([]entities.TicketMessage, error)
	// Close переводит тикет в CLOSED и фиксирует момент закрытия.
	// Повторное закрытие ничего не меняет (closed_at не перезаписывается).
	Close(ctx context.Context, id uint64, closedAt time.Time) (bool, error)
}

type ticketRepository struct {
	storage querier
}

func NewTicketRepository(storage *pgxpool.Pool) TicketRepositoryInterface {
	return &ticketRepository{storage: storage}
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint64) (*entities.Ticket, error) {
	query := `
		SELECT id, created_by, owner_org_unit_id, title, description, priority, status, sensitivity_level, created_at, closed_at
		FROM tickets WHERE id = $1`
	var t entities.Ticket
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.CreatedBy, &t.OwnerOrgUnitID, &t.Title, &t.Description,
		&t.Priority, &t.Status, &t.SensitivityLevel, &t.CreatedAt, &t.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepository) FindMessagesByTicketID(ctx context.Context, ticketID uint64) ([]entities.TicketMessage, error) {
	query := `
		SELECT id, ticket_id, author_id, type, body, created_at
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at ASC`
	rows, err := r.storage.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []entities.TicketMessage
	for rows.Next() {
		var m entities.TicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Type, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *ticketRepository) Close(ctx context.Context, id uint64, closedAt time.Time) (bool, error) {
	query := `
		UPDATE tickets
		SET status = 'CLOSED', closed_at = COALESCE(closed_at, $2), updated_at = now()
		WHERE id = $1 AND status != 'CLOSED'`
	tag, err := r.storage.Exec(ctx, query, id, closedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
