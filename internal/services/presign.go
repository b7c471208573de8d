package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketing-attachments/internal/authz"
	"ticketing-attachments/internal/dto"
	"ticketing-attachments/internal/entities"
	"ticketing-attachments/internal/repositories"
	"ticketing-attachments/pkg/config"
	apperrors "ticketing-attachments/pkg/errors"
	"ticketing-attachments/pkg/objectstore"
	"ticketing-attachments/pkg/utils"
)

// PresignServiceInterface выдает подписанные ссылки на загрузку и скачивание.
// Скачивание разрешено только для CLEAN и ACTIVE вложений.
type PresignServiceInterface interface {
	PresignUpload(ctx context.Context, ticketID uint64, requester *Requester, meta RequestMeta, payload dto.PresignUploadDTO) (*dto.PresignUploadResponseDTO, error)
	PresignDownload(ctx context.Context, ticketID, attachmentID uint64, requester *Requester, meta RequestMeta) (*dto.PresignDownloadResponseDTO, error)
}

type PresignService struct {
	attachRepo repositories.AttachmentRepositoryInterface
	ticketRepo repositories.TicketRepositoryInterface
	auditRepo  repositories.AuditRepositoryInterface
	storage    objectstore.ObjectStorageInterface
	orgScope   *authz.OrgScope
	cfg        config.AttachmentsConfig
	logger     *zap.Logger
}

func NewPresignService(
	attachRepo repositories.AttachmentRepositoryInterface,
	ticketRepo repositories.TicketRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	storage objectstore.ObjectStorageInterface,
	orgScope *authz.OrgScope,
	cfg config.AttachmentsConfig,
	logger *zap.Logger,
) PresignServiceInterface {
	return &PresignService{
		attachRepo: attachRepo,
		ticketRepo: ticketRepo,
		auditRepo:  auditRepo,
		storage:    storage,
		orgScope:   orgScope,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *PresignService) PresignUpload(ctx context.Context, ticketID uint64, requester *Requester, meta RequestMeta, payload dto.PresignUploadDTO) (*dto.PresignUploadResponseDTO, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("Тикет не найден")
	}

	if err := s.checkTicketAccess(ctx, ticket, requester, meta, "ticket_attachment"); err != nil {
		return nil, err
	}

	if payload.Size <= 0 || payload.Size > s.cfg.MaxSizeBytes {
		return nil, apperrors.NewBadRequestError("Недопустимый размер вложения")
	}

	level := payload.SensitivityLevel
	if level == "" {
		level = entities.SensitivityRegular
	}

	// ключ объекта: пространство тикета + случайный суффикс, коллизии исключены
	safeName := utils.SafeFilename(payload.OriginalFilename)
	objectKey := fmt.Sprintf("tickets/%d/%s_%s", ticketID, uuid.New().String(), safeName)

	attachment := &entities.Attachment{
		TicketID:         ticketID,
		UploadedBy:       null.Uint64From(requester.User.ID),
		ObjectKey:        objectKey,
		OriginalFilename: payload.OriginalFilename,
		Mime:             null.NewString(payload.Mime, payload.Mime != ""),
		Size:             payload.Size,
		Checksum:         null.NewString(payload.Checksum, payload.Checksum != ""),
		ScannedStatus:    entities.ScanStatusPending,
		SensitivityLevel: level,
		Status:           entities.AttachmentStatusActive,
	}

	attachmentID, err := s.attachRepo.Create(ctx, attachment)
	if err != nil {
		s.logger.Error("не удалось создать запись вложения", zap.Uint64("ticketID", ticketID), zap.Error(err))
		return nil, apperrors.NewHttpError(http.StatusInternalServerError, "Не удалось создать вложение", err, nil)
	}

	contentType := payload.Mime
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uploadURL, err := s.storage.PresignPut(ctx, objectKey, contentType, s.cfg.UploadPresignTTL)
	if err != nil {
		s.logger.Error("не удалось подписать PUT", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, apperrors.NewHttpError(http.StatusInternalServerError, "Хранилище недоступно", err, nil)
	}

	writeAudit(ctx, s.auditRepo, s.logger,
		null.Uint64From(requester.User.ID),
		entities.AuditActionPresigned, "attachment", null.Uint64From(attachmentID),
		map[string]interface{}{
			"ticket_id":  ticketID,
			"object_key": objectKey,
			"size":       payload.Size,
			"mime":       payload.Mime,
		},
		meta,
	)

	return &dto.PresignUploadResponseDTO{
		AttachmentID: attachmentID,
		ObjectKey:    objectKey,
		UploadURL:    uploadURL,
		ExpiresIn:    int64(s.cfg.UploadPresignTTL.Seconds()),
	}, nil
}

func (s *PresignService) PresignDownload(ctx context.Context, ticketID, attachmentID uint64, requester *Requester, meta RequestMeta) (*dto.PresignDownloadResponseDTO, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("Тикет не найден")
	}

	if err := s.checkTicketAccess(ctx, ticket, requester, meta, "ticket_attachment_download"); err != nil {
		return nil, err
	}

	attachment, err := s.attachRepo.FindByTicketAndID(ctx, ticketID, attachmentID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("Вложение не найдено")
	}

	// Ограничение по чувствительности: без нужной привилегии вложение
	// неотличимо от несуществующего.
	if !s.sensitivityVisible(attachment.SensitivityLevel, requester.Caps) {
		s.auditDenied(ctx, requester, attachment, meta, "sensitivity")
		return nil, apperrors.NewNotFoundError("Вложение не найдено")
	}

	if attachment.Status == entities.AttachmentStatusDeleted {
		return nil, apperrors.NewNotFoundError("Вложение не найдено")
	}

	switch attachment.ScannedStatus {
	case entities.ScanStatusClean:
		// разрешено
	case entities.ScanStatusPending, entities.ScanStatusScanning:
		s.auditDenied(ctx, requester, attachment, meta, "scan_pending")
		return nil, apperrors.NewConflictError(apperrors.ErrAttachmentNotReady.Error())
	default: // INFECTED, FAILED
		s.auditDenied(ctx, requester, attachment, meta, "scan_blocked")
		return nil, apperrors.NewConflictError(apperrors.ErrAttachmentBlocked.Error())
	}

	downloadURL, err := s.storage.PresignGet(ctx, attachment.ObjectKey, s.cfg.DownloadPresignTTL)
	if err != nil {
		s.logger.Error("не удалось подписать GET", zap.String("objectKey", attachment.ObjectKey), zap.Error(err))
		return nil, apperrors.NewHttpError(http.StatusInternalServerError, "Хранилище недоступно", err, nil)
	}

	writeAudit(ctx, s.auditRepo, s.logger,
		null.Uint64From(requester.User.ID),
		entities.AuditActionDownloaded, "attachment", null.Uint64From(attachment.ID),
		map[string]interface{}{
			"ticket_id":      ticketID,
			"object_key":     attachment.ObjectKey,
			"scanned_status": attachment.ScannedStatus,
		},
		meta,
	)

	return &dto.PresignDownloadResponseDTO{
		AttachmentID: attachment.ID,
		DownloadURL:  downloadURL,
		ExpiresIn:    int64(s.cfg.DownloadPresignTTL.Seconds()),
	}, nil
}

// checkTicketAccess повторяет порядок проверок исходного маршрута:
// конфиденциальность тикета (отказ маскируется под 404), затем
// организационная область (отказ — явный 403).
func (s *PresignService) checkTicketAccess(ctx context.Context, ticket *entities.Ticket, requester *Requester, meta RequestMeta, entityType string) error {
	if ticket.SensitivityLevel == entities.SensitivityConfidential && !requester.Caps.Has(authz.CapConfidentialView) {
		writeAudit(ctx, s.auditRepo, s.logger,
			null.Uint64From(requester.User.ID),
			entities.AuditActionPermissionDenied, entityType, null.Uint64From(ticket.ID),
			map[string]interface{}{"reason": "CONFIDENTIAL"}, meta,
		)
		return apperrors.NewNotFoundError("Тикет не найден")
	}

	inScope := false
	if ticket.OwnerOrgUnitID.Valid && requester.User.OrgUnitID.Valid {
		var err error
		inScope, err = s.orgScope.InScope(ctx, requester.User.OrgUnitID.Uint64, requester.User.ScopeLevel, ticket.OwnerOrgUnitID.Uint64)
		if err != nil {
			s.logger.Error("ошибка проверки области видимости", zap.Uint64("ticketID", ticket.ID), zap.Error(err))
			inScope = false
		}
	}
	if !inScope {
		writeAudit(ctx, s.auditRepo, s.logger,
			null.Uint64From(requester.User.ID),
			entities.AuditActionPermissionDenied, entityType, null.Uint64From(ticket.ID),
			map[string]interface{}{"reason": "ORG_SCOPE"}, meta,
		)
		return apperrors.NewForbiddenError("Подразделение вне вашей области видимости")
	}

	return nil
}

func (s *PresignService) sensitivityVisible(level string, caps authz.CapabilitySet) bool {
	switch level {
	case entities.SensitivityConfidential:
		return caps.Has(authz.CapConfidentialView)
	case entities.SensitivityRestricted:
		return caps.Has(authz.CapExportConfidential)
	default:
		return true
	}
}

func (s *PresignService) auditDenied(ctx context.Context, requester *Requester, attachment *entities.Attachment, meta RequestMeta, reason string) {
	writeAudit(ctx, s.auditRepo, s.logger,
		null.Uint64From(requester.User.ID),
		entities.AuditActionDownloadDenied, "attachment", null.Uint64From(attachment.ID),
		map[string]interface{}{
			"ticket_id":      attachment.TicketID,
			"reason":         reason,
			"scanned_status": attachment.ScannedStatus,
		},
		meta,
	)
}
