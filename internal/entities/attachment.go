package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// Статусы антивирусной проверки. PENDING переходит ровно один раз в
// терминальное состояние (CLEAN, INFECTED, FAILED) и никогда обратно.
// SCANNING — маркер захвата строки воркером; протухший захват
// возвращается в PENDING.
const (
	ScanStatusPending  = "PENDING"
	ScanStatusScanning = "SCANNING"
	ScanStatusClean    = "CLEAN"
	ScanStatusInfected = "INFECTED"
	ScanStatusFailed   = "FAILED"
)

// Уровни чувствительности вложения.
const (
	SensitivityRegular      = "REGULAR"
	SensitivityConfidential = "CONFIDENTIAL"
	SensitivityRestricted   = "RESTRICTED"
)

// Статус записи. DELETED означает, что объект физически удален из хранилища.
const (
	AttachmentStatusActive  = "ACTIVE"
	AttachmentStatusDeleted = "DELETED"
)

type Attachment struct {
	ID               uint64      `db:"id"`
	TicketID         uint64      `db:"ticket_id"`
	UploadedBy       null.Uint64 `db:"uploaded_by"`
	ObjectKey        string      `db:"object_key"`
	OriginalFilename string      `db:"original_filename"`
	Mime             null.String `db:"mime"`
	Size             int64       `db:"size"`
	Checksum         null.String `db:"checksum"`
	ScannedStatus    string      `db:"scanned_status"`
	ScannedAt        null.Time   `db:"scanned_at"`
	ClaimedAt        null.Time   `db:"claimed_at"`
	SensitivityLevel string      `db:"sensitivity_level"`
	Status           string      `db:"status"`
	RetentionDays    null.Int    `db:"retention_days"`
	ExpiresAt        null.Time   `db:"expires_at"`
	RedactedAt       null.Time   `db:"redacted_at"`
	CreatedAt        time.Time   `db:"created_at"`
}

// Downloadable сообщает, можно ли выдавать подписанную ссылку на скачивание.
func (a *Attachment) Downloadable() bool {
	return a.ScannedStatus == ScanStatusClean && a.Status == AttachmentStatusActive
}
