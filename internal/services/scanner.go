package services

import (
	"context"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"ticketing-attachments/internal/entities"
	"ticketing-attachments/internal/repositories"
	"ticketing-attachments/pkg/clamav"
	"ticketing-attachments/pkg/config"
	"ticketing-attachments/pkg/objectstore"
)

// ScanServiceInterface обрабатывает очередь антивирусной проверки.
type ScanServiceInterface interface {
	RunOnce(ctx context.Context) error
}

type ScanService struct {
	attachRepo repositories.AttachmentRepositoryInterface
	auditRepo  repositories.AuditRepositoryInterface
	storage    objectstore.ObjectStorageInterface
	scanner    clamav.ScannerInterface
	cfg        config.ScannerConfig
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewScanService(
	attachRepo repositories.AttachmentRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	storage objectstore.ObjectStorageInterface,
	scanner clamav.ScannerInterface,
	cfg config.ScannerConfig,
	logger *zap.Logger,
) *ScanService {
	return &ScanService{
		attachRepo: attachRepo,
		auditRepo:  auditRepo,
		storage:    storage,
		scanner:    scanner,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunOnce возвращает протухшие захваты в очередь и обрабатывает до
// BatchSize вложений. Ошибка одной строки не останавливает пакет:
// захват конкретной строки уже переведен в терминальное состояние или
// будет возвращен в очередь по таймауту.
func (s *ScanService) RunOnce(ctx context.Context) error {
	released, err := s.attachRepo.ReleaseStaleClaims(ctx, s.now().Add(-s.cfg.ClaimTTL))
	if err != nil {
		s.logger.Error("не удалось вернуть протухшие захваты", zap.Error(err))
	} else if released > 0 {
		s.logger.Warn("возвращены протухшие захваты проверки", zap.Int64("count", released))
	}

	for i := 0; i < s.cfg.BatchSize; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attachment, err := s.attachRepo.ClaimNextPending(ctx)
		if err != nil {
			s.logger.Error("не удалось захватить вложение из очереди", zap.Error(err))
			return err
		}
		if attachment == nil {
			return nil // очередь пуста
		}

		s.processOne(ctx, attachment)
	}

	return nil
}

func (s *ScanService) processOne(ctx context.Context, attachment *entities.Attachment) {
	verdict, signature := s.scanWithRetries(ctx, attachment)

	applied, err := s.attachRepo.FinishScan(ctx, attachment.ID, verdict)
	if err != nil {
		s.logger.Error("не удалось записать вердикт проверки",
			zap.Uint64("attachmentID", attachment.ID), zap.Error(err))
		return
	}
	if !applied {
		// Захват был потерян (протух и возвращен в очередь либо уже
		// обработан другим воркером). Вердикт отбрасывается: строка в
		// терминальном состоянии меняться не должна.
		s.logger.Warn("захват потерян, вердикт отброшен",
			zap.Uint64("attachmentID", attachment.ID), zap.String("verdict", verdict))
		return
	}

	s.logger.Info("проверка вложения завершена",
		zap.Uint64("attachmentID", attachment.ID),
		zap.String("verdict", verdict),
		zap.String("signature", signature))

	diff := map[string]interface{}{
		"ticket_id":  attachment.TicketID,
		"object_key": attachment.ObjectKey,
		"verdict":    verdict,
	}
	if signature != "" {
		diff["signature"] = signature
	}
	writeAudit(ctx, s.auditRepo, s.logger,
		null.Uint64{}, entities.AuditActionScanned, "attachment",
		null.Uint64From(attachment.ID), diff, RequestMeta{})
}

// scanWithRetries скачивает объект и прогоняет его через clamd.
// INFECTED — немедленный результат; временные ошибки (хранилище, сеть,
// протокол) повторяются до MaxAttempts с паузой RetryBackoff, после
// чего вложение помечается FAILED.
func (s *ScanService) scanWithRetries(ctx context.Context, attachment *entities.Attachment) (string, string) {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, s.cfg.RetryBackoff); err != nil {
				break
			}
		}

		body, err := s.storage.Get(ctx, attachment.ObjectKey)
		if err != nil {
			lastErr = err
			s.logger.Warn("не удалось получить объект из хранилища",
				zap.String("objectKey", attachment.ObjectKey),
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		result, err := s.scanner.Scan(ctx, body)
		body.Close()
		if err != nil {
			lastErr = err
			s.logger.Warn("ошибка антивирусной проверки",
				zap.String("objectKey", attachment.ObjectKey),
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		if result.Infected {
			return entities.ScanStatusInfected, result.Signature
		}
		return entities.ScanStatusClean, ""
	}

	s.logger.Error("проверка вложения не удалась, попытки исчерпаны",
		zap.Uint64("attachmentID", attachment.ID),
		zap.Int("attempts", s.cfg.MaxAttempts),
		zap.Error(lastErr))
	return entities.ScanStatusFailed, ""
}
