package dto

import (
	"time"

	"ticketing-attachments/internal/redaction"
)

type ExportMessageDTO struct {
	ID        uint64    `json:"id"`
	AuthorID  *uint64   `json:"author_id,omitempty"`
	Type      string    `json:"type"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportBundleDTO — полный выгружаемый пакет тикета. Список вложений уже
// отфильтрован и отредактирован по привилегиям запрашивающего.
type ExportBundleDTO struct {
	TicketID         uint64                     `json:"ticket_id"`
	Title            string                     `json:"title"`
	Description      string                     `json:"description"`
	Priority         string                     `json:"priority"`
	Status           string                     `json:"status"`
	SensitivityLevel string                     `json:"sensitivity_level"`
	CreatedAt        time.Time                  `json:"created_at"`
	ClosedAt         *time.Time                 `json:"closed_at,omitempty"`
	Messages         []ExportMessageDTO         `json:"messages"`
	Attachments      []redaction.AttachmentView `json:"attachments"`
	ExportedAt       time.Time                  `json:"exported_at"`
}

type CloseTicketDTO struct {
	RetentionDays int `json:"retention_days" validate:"omitempty,gt=0,lte=3650"`
}

type CleanupStatsDTO struct {
	ExpiredFound       int  `json:"expired_found"`
	MarkedDeleted      int  `json:"marked_deleted"`
	RemovedFromStorage int  `json:"removed_from_storage"`
	Failed             int  `json:"failed"`
	DryRun             bool `json:"dry_run"`
}
