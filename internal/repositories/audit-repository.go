package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-attachments/internal/entities"
)

// AuditRepositoryInterface — журнал аудита. Только Append: записи не
// обновляются и не удаляются.
type AuditRepositoryInterface interface {
	Append(ctx context.Context, entry *entities.AuditLog) error
}

type auditRepository struct {
	storage querier
}

func NewAuditRepository(storage *pgxpool.Pool) AuditRepositoryInterface {
	return &auditRepository{storage: storage}
}

func (r *auditRepository) Append(ctx context.Context, entry *entities.AuditLog) error {
	diffJSON, err := marshalOrNil(entry.Diff)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать diff аудита: %w", err)
	}
	metaJSON, err := marshalOrNil(entry.Meta)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать meta аудита: %w", err)
	}

	query := `
		INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, diff_json, meta_json, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.storage.Exec(ctx, query,
		entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		diffJSON, metaJSON, entry.IP, entry.UserAgent,
	)
	return err
}

func marshalOrNil(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
