// Файл: internal/repositories/attachment-repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-attachments/internal/entities"
	apperrors "ticketing-attachments/pkg/errors"
)

// AttachmentRepositoryInterface — доступ к таблице attachments.
// Координация конкурентных воркеров идет только через базу: захват строки
// на сканирование и запись вердикта — атомарные условные обновления.
type AttachmentRepositoryInterface interface {
	Create(ctx context.Context, attachment *entities.Attachment) (uint64, error)
	FindByTicketAndID(ctx context.Context, ticketID, id uint64) (*entities.Attachment, error)
	FindActiveByTicketID(ctx context.Context, ticketID uint64) ([]entities.Attachment, error)

	// ClaimNextPending атомарно захватывает самую старую PENDING-строку
	// (PENDING -> SCANNING + claimed_at). Возвращает nil, nil при пустой очереди.
	ClaimNextPending(ctx context.Context) (*entities.Attachment, error)
	// FinishScan записывает терминальный вердикт при условии, что строка всё
	// ещё захвачена. false — захват потерян, вердикт отброшен.
	FinishScan(ctx context.Context, id uint64, verdict string) (bool, error)
	// ReleaseStaleClaims возвращает протухшие захваты (claimed_at < cutoff)
	// обратно в PENDING. Восстановление после падения воркера.
	ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)

	// SetRetention проставляет срок хранения всем ACTIVE-вложениям тикета,
	// у которых он ещё не установлен. Идемпотентна.
	SetRetention(ctx context.Context, ticketID uint64, days int, expiresAt time.Time) (int64, error)
	FindExpired(ctx context.Context, now time.Time) ([]entities.Attachment, error)
	// MarkDeleted помечает строку DELETED после физического удаления объекта.
	// false — строка уже была DELETED (повторная очистка ничего не делает).
	MarkDeleted(ctx context.Context, id uint64, redactedAt time.Time) (bool, error)
}

const attachmentColumns = `id, ticket_id, uploaded_by, object_key, original_filename, mime, size, checksum,
	scanned_status, scanned_at, claimed_at, sensitivity_level, status, retention_days, expires_at, redacted_at, created_at`

type attachmentRepository struct {
	storage querier
}

func NewAttachmentRepository(storage *pgxpool.Pool) AttachmentRepositoryInterface {
	return &attachmentRepository{storage: storage}
}

func scanAttachment(row pgx.Row) (*entities.Attachment, error) {
	var a entities.Attachment
	err := row.Scan(
		&a.ID, &a.TicketID, &a.UploadedBy, &a.ObjectKey, &a.OriginalFilename, &a.Mime, &a.Size, &a.Checksum,
		&a.ScannedStatus, &a.ScannedAt, &a.ClaimedAt, &a.SensitivityLevel, &a.Status,
		&a.RetentionDays, &a.ExpiresAt, &a.RedactedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *entities.Attachment) (uint64, error) {
	query := `
		INSERT INTO attachments
		(ticket_id, uploaded_by, object_key, original_filename, mime, size, checksum, scanned_status, sensitivity_level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	var attachmentID uint64
	err := r.storage.QueryRow(ctx, query,
		attachment.TicketID, attachment.UploadedBy, attachment.ObjectKey,
		attachment.OriginalFilename, attachment.Mime, attachment.Size, attachment.Checksum,
		attachment.ScannedStatus, attachment.SensitivityLevel, attachment.Status,
	).Scan(&attachmentID)
	return attachmentID, err
}

// FindByTicketAndID ищет вложение строго в рамках тикета — защита от IDOR.
func (r *attachmentRepository) FindByTicketAndID(ctx context.Context, ticketID, id uint64) (*entities.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1 AND ticket_id = $2`
	a, err := scanAttachment(r.storage.QueryRow(ctx, query, id, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *attachmentRepository) FindActiveByTicketID(ctx context.Context, ticketID uint64) ([]entities.Attachment, error) {
	query, args, err := sq.Select("id", "ticket_id", "uploaded_by", "object_key", "original_filename", "mime", "size", "checksum",
		"scanned_status", "scanned_at", "claimed_at", "sensitivity_level", "status", "retention_days", "expires_at", "redacted_at", "created_at").
		From("attachments").
		Where(sq.Eq{"ticket_id": ticketID, "status": entities.AttachmentStatusActive}).
		OrderBy("created_at ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	return r.queryAttachments(ctx, query, args...)
}

func (r *attachmentRepository) ClaimNextPending(ctx context.Context) (*entities.Attachment, error) {
	// SKIP LOCKED гарантирует, что два воркера не заберут одну строку
	// и не будут блокировать друг друга на соседних строках.
	query := `
		UPDATE attachments
		SET scanned_status = 'SCANNING', claimed_at = now()
		WHERE id = (
			SELECT id FROM attachments
			WHERE scanned_status = 'PENDING' AND status = 'ACTIVE'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + attachmentColumns

	a, err := scanAttachment(r.storage.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *attachmentRepository) FinishScan(ctx context.Context, id uint64, verdict string) (bool, error) {
	query := `
		UPDATE attachments
		SET scanned_status = $2, scanned_at = now(), claimed_at = NULL
		WHERE id = $1 AND scanned_status = 'SCANNING'`
	tag, err := r.storage.Exec(ctx, query, id, verdict)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *attachmentRepository) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE attachments
		SET scanned_status = 'PENDING', claimed_at = NULL
		WHERE scanned_status = 'SCANNING' AND claimed_at < $1`
	tag, err := r.storage.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *attachmentRepository) SetRetention(ctx context.Context, ticketID uint64, days int, expiresAt time.Time) (int64, error) {
	// expires_at IS NULL защищает от повторного вызова: установленный срок
	// никогда не пересчитывается и не уменьшается
	query := `
		UPDATE attachments
		SET retention_days = $2, expires_at = $3
		WHERE ticket_id = $1 AND status = 'ACTIVE' AND expires_at IS NULL`
	tag, err := r.storage.Exec(ctx, query, ticketID, days, expiresAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *attachmentRepository) FindExpired(ctx context.Context, now time.Time) ([]entities.Attachment, error) {
	query, args, err := sq.Select("id", "ticket_id", "uploaded_by", "object_key", "original_filename", "mime", "size", "checksum",
		"scanned_status", "scanned_at", "claimed_at", "sensitivity_level", "status", "retention_days", "expires_at", "redacted_at", "created_at").
		From("attachments").
		Where(sq.Eq{"status": entities.AttachmentStatusActive}).
		Where(sq.NotEq{"expires_at": nil}).
		Where(sq.LtOrEq{"expires_at": now}).
		OrderBy("expires_at ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	return r.queryAttachments(ctx, query, args...)
}

func (r *attachmentRepository) MarkDeleted(ctx context.Context, id uint64, redactedAt time.Time) (bool, error) {
	query := `
		UPDATE attachments
		SET status = 'DELETED', redacted_at = COALESCE(redacted_at, $2)
		WHERE id = $1 AND status = 'ACTIVE'`
	tag, err := r.storage.Exec(ctx, query, id, redactedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *attachmentRepository) queryAttachments(ctx context.Context, query string, args ...any) ([]entities.Attachment, error) {
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []entities.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}
