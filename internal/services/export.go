package services

import (
	"context"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"ticketing-attachments/internal/authz"
	"ticketing-attachments/internal/dto"
	"ticketing-attachments/internal/entities"
	"ticketing-attachments/internal/redaction"
	"ticketing-attachments/internal/repositories"
	apperrors "ticketing-attachments/pkg/errors"
)

// ExportServiceInterface собирает выгружаемый пакет тикета: сообщения
// плюс метаданные вложений, пропущенные через редакцию по привилегиям.
type ExportServiceInterface interface {
	Export(ctx context.Context, ticketID uint64, requester *Requester, meta RequestMeta) (*dto.ExportBundleDTO, error)
}

type ExportService struct {
	ticketRepo repositories.TicketRepositoryInterface
	attachRepo repositories.AttachmentRepositoryInterface
	auditRepo  repositories.AuditRepositoryInterface
	orgScope   *authz.OrgScope
	logger     *zap.Logger
	now        func() time.Time
}

func NewExportService(
	ticketRepo repositories.TicketRepositoryInterface,
	attachRepo repositories.AttachmentRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	orgScope *authz.OrgScope,
	logger *zap.Logger,
) ExportServiceInterface {
	return &ExportService{
		ticketRepo: ticketRepo,
		attachRepo: attachRepo,
		auditRepo:  auditRepo,
		orgScope:   orgScope,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ExportService) Export(ctx context.Context, ticketID uint64, requester *Requester, meta RequestMeta) (*dto.ExportBundleDTO, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("Тикет не найден")
	}

	if ticket.SensitivityLevel == entities.SensitivityConfidential && !requester.Caps.Has(authz.CapConfidentialView) {
		writeAudit(ctx, s.auditRepo, s.logger,
			null.Uint64From(requester.User.ID),
			entities.AuditActionPermissionDenied, "ticket_export", null.Uint64From(ticketID),
			map[string]interface{}{"reason": "CONFIDENTIAL"}, meta)
		return nil, apperrors.NewNotFoundError("Тикет не найден")
	}

	if err := s.checkScope(ctx, ticket, requester, meta); err != nil {
		return nil, err
	}

	messages, err := s.ticketRepo.FindMessagesByTicketID(ctx, ticketID)
	if err != nil {
		s.logger.Error("не удалось загрузить сообщения тикета", zap.Uint64("ticketID", ticketID), zap.Error(err))
		return nil, err
	}

	attachments, err := s.attachRepo.FindActiveByTicketID(ctx, ticketID)
	if err != nil {
		s.logger.Error("не удалось загрузить вложения тикета", zap.Uint64("ticketID", ticketID), zap.Error(err))
		return nil, err
	}

	views, includedIDs := redaction.RedactAll(attachments, requester.Caps)

	bundle := &dto.ExportBundleDTO{
		TicketID:         ticket.ID,
		Title:            ticket.Title,
		Description:      ticket.Description,
		Priority:         ticket.Priority,
		Status:           ticket.Status,
		SensitivityLevel: ticket.SensitivityLevel,
		CreatedAt:        ticket.CreatedAt,
		Messages:         make([]dto.ExportMessageDTO, 0, len(messages)),
		Attachments:      views,
		ExportedAt:       s.now(),
	}
	if ticket.ClosedAt.Valid {
		closedAt := ticket.ClosedAt.Time
		bundle.ClosedAt = &closedAt
	}
	for _, m := range messages {
		msg := dto.ExportMessageDTO{
			ID:        m.ID,
			Type:      m.Type,
			Body:      m.Body,
			CreatedAt: m.CreatedAt,
		}
		if m.AuthorID.Valid {
			authorID := m.AuthorID.Uint64
			msg.AuthorID = &authorID
		}
		bundle.Messages = append(bundle.Messages, msg)
	}

	// В аудит попадают только включенные в выгрузку вложения: по записи
	// можно восстановить, какие метаданные фактически покинули систему.
	writeAudit(ctx, s.auditRepo, s.logger,
		null.Uint64From(requester.User.ID),
		entities.AuditActionTicketExported, "ticket", null.Uint64From(ticketID),
		map[string]interface{}{
			"attachment_ids":    includedIDs,
			"attachments_total": len(attachments),
			"messages_total":    len(messages),
		},
		meta)

	return bundle, nil
}

func (s *ExportService) checkScope(ctx context.Context, ticket *entities.Ticket, requester *Requester, meta RequestMeta) error {
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
			entities.AuditActionPermissionDenied, "ticket_export", null.Uint64From(ticket.ID),
			map[string]interface{}{"reason": "ORG_SCOPE"}, meta)
		return apperrors.NewForbiddenError("Подразделение вне вашей области видимости")
	}
	return nil
}
