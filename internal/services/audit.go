package services

import (
	"context"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"ticketing-attachments/internal/entities"
	"ticketing-attachments/internal/repositories"
)

// writeAudit пишет запись аудита в режиме best-effort: сбой журнала
// логируется, но не валит основную операцию.
func writeAudit(
	ctx context.Context,
	repo repositories.AuditRepositoryInterface,
	logger *zap.Logger,
	actorID null.Uint64,
	action, entityType string,
	entityID null.Uint64,
	diff map[string]interface{},
	meta RequestMeta,
) {
	entry := &entities.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Diff:       diff,
	}
	if meta.Path != "" || meta.Method != "" {
		entry.Meta = map[string]interface{}{"path": meta.Path, "method": meta.Method}
	}
	if meta.IP != "" {
		entry.IP = null.StringFrom(meta.IP)
	}
	if meta.UserAgent != "" {
		entry.UserAgent = null.StringFrom(meta.UserAgent)
	}

	if err := repo.Append(ctx, entry); err != nil {
		logger.Error("не удалось записать событие аудита",
			zap.String("action", action),
			zap.String("entityType", entityType),
			zap.Error(err),
		)
	}
}
