package services

import (
	"context"
	"net/http"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"ticketing-attachments/internal/dto"
	"ticketing-attachments/internal/entities"
	"ticketing-attachments/internal/repositories"
	"ticketing-attachments/pkg/config"
	apperrors "ticketing-attachments/pkg/errors"
	"ticketing-attachments/pkg/objectstore"
)

// RetentionServiceInterface — срок хранения вложений и их очистка.
type RetentionServiceInterface interface {
	CloseTicketWithRetention(ctx context.Context, ticketID uint64, days int) error
	RunCleanup(ctx context.Context, dryRun bool) (*dto.CleanupStatsDTO, error)
}

type RetentionService struct {
	attachRepo repositories.AttachmentRepositoryInterface
	ticketRepo repositories.TicketRepositoryInterface
	auditRepo  repositories.AuditRepositoryInterface
	storage    objectstore.ObjectStorageInterface
	cfg        config.RetentionConfig
	logger     *zap.Logger
	now        func() time.Time
}

func NewRetentionService(
	attachRepo repositories.AttachmentRepositoryInterface,
	ticketRepo repositories.TicketRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	storage objectstore.ObjectStorageInterface,
	cfg config.RetentionConfig,
	logger *zap.Logger,
) *RetentionService {
	return &RetentionService{
		attachRepo: attachRepo,
		ticketRepo: ticketRepo,
		auditRepo:  auditRepo,
		storage:    storage,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// CloseTicketWithRetention закрывает тикет и назначает срок хранения его
// активным вложениям. Срок отсчитывается от момента закрытия; повторное
// закрытие уже закрытого тикета срок не пересчитывает.
func (s *RetentionService) CloseTicketWithRetention(ctx context.Context, ticketID uint64, days int) error {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return apperrors.NewNotFoundError("Тикет не найден")
	}

	if days <= 0 {
		days = s.cfg.DefaultDays
	}

	closedAt := s.now()
	if ticket.Status != entities.TicketStatusClosed {
		if _, err := s.ticketRepo.Close(ctx, ticketID, closedAt); err != nil {
			s.logger.Error("не удалось закрыть тикет", zap.Uint64("ticketID", ticketID), zap.Error(err))
			return apperrors.NewHttpError(http.StatusInternalServerError, "Не удалось закрыть тикет", err, nil)
		}
	} else if ticket.ClosedAt.Valid {
		closedAt = ticket.ClosedAt.Time
	}

	expiresAt := closedAt.Add(time.Duration(days) * 24 * time.Hour)
	updated, err := s.attachRepo.SetRetention(ctx, ticketID, days, expiresAt)
	if err != nil {
		s.logger.Error("не удалось назначить срок хранения", zap.Uint64("ticketID", ticketID), zap.Error(err))
		return apperrors.NewHttpError(http.StatusInternalServerError, "Не удалось назначить срок хранения", err, nil)
	}

	s.logger.Info("тикет закрыт, срок хранения назначен",
		zap.Uint64("ticketID", ticketID),
		zap.Int("retentionDays", days),
		zap.Int64("attachments", updated))
	return nil
}

// RunCleanup обрабатывает вложения с истекшим сроком хранения. Порядок
// для каждого: удаление из хранилища, затем пометка DELETED, затем запись
// аудита. Сбой хранилища оставляет строку нетронутой для следующего
// запуска; сбой аудита только логируется. В режиме dryRun ничего не
// меняется, возвращается только счетчик кандидатов.
func (s *RetentionService) RunCleanup(ctx context.Context, dryRun bool) (*dto.CleanupStatsDTO, error) {
	now := s.now()
	expired, err := s.attachRepo.FindExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	stats := &dto.CleanupStatsDTO{ExpiredFound: len(expired), DryRun: dryRun}
	if dryRun {
		for _, a := range expired {
			s.logger.Info("кандидат на удаление",
				zap.Uint64("attachmentID", a.ID),
				zap.Uint64("ticketID", a.TicketID),
				zap.String("objectKey", a.ObjectKey),
				zap.Time("expiresAt", a.ExpiresAt.Time))
		}
		return stats, nil
	}

	for _, a := range expired {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if s.cleanupOne(ctx, &a, now) {
			stats.MarkedDeleted++
			stats.RemovedFromStorage++
		} else {
			stats.Failed++
		}
	}

	s.logger.Info("очистка завершена",
		zap.Int("expiredFound", stats.ExpiredFound),
		zap.Int("markedDeleted", stats.MarkedDeleted),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (s *RetentionService) cleanupOne(ctx context.Context, a *entities.Attachment, now time.Time) bool {
	if err := s.storage.Delete(ctx, a.ObjectKey); err != nil {
		s.logger.Error("не удалось удалить объект из хранилища",
			zap.Uint64("attachmentID", a.ID),
			zap.String("objectKey", a.ObjectKey),
			zap.Error(err))
		return false
	}

	marked, err := s.attachRepo.MarkDeleted(ctx, a.ID, now)
	if err != nil {
		s.logger.Error("не удалось пометить вложение удаленным",
			zap.Uint64("attachmentID", a.ID), zap.Error(err))
		return false
	}
	if !marked {
		// уже помечено параллельным запуском, объекта в хранилище нет
		return true
	}

	writeAudit(ctx, s.auditRepo, s.logger,
		null.Uint64{}, entities.AuditActionRetentionExpired, "attachment",
		null.Uint64From(a.ID),
		map[string]interface{}{
			"ticket_id":  a.TicketID,
			"object_key": a.ObjectKey,
			"expires_at": a.ExpiresAt.Time,
		},
		RequestMeta{})
	return true
}
