package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// Действия, фиксируемые в журнале аудита.
const (
	AuditActionPresigned        = "TICKET_ATTACHMENT_PRESIGNED"
	AuditActionDownloaded       = "TICKET_ATTACHMENT_DOWNLOADED"
	AuditActionDownloadDenied   = "ATTACHMENT_DOWNLOAD_DENIED"
	AuditActionScanned          = "ATTACHMENT_SCANNED"
	AuditActionRetentionExpired = "ATTACHMENT_RETENTION_EXPIRED"
	AuditActionTicketExported   = "TICKET_EXPORTED"
	AuditActionPermissionDenied = "PERMISSION_DENIED"
)

// AuditLog — запись журнала аудита. Журнал только пополняется,
// существующие записи не изменяются и не удаляются.
type AuditLog struct {
	ID         uint64                 `db:"id"`
	ActorID    null.Uint64            `db:"actor_id"`
	Action     string                 `db:"action"`
	EntityType string                 `db:"entity_type"`
	EntityID   null.Uint64            `db:"entity_id"`
	Diff       map[string]interface{} `db:"diff_json"`
	Meta       map[string]interface{} `db:"meta_json"`
	IP         null.String            `db:"ip"`
	UserAgent  null.String            `db:"user_agent"`
	CreatedAt  time.Time              `db:"created_at"`
}
