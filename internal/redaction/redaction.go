// Пакет redaction — чистые правила видимости метаданных вложений.
// Никаких побочных эффектов: вход — метаданные и привилегии запрашивающего,
// выход — отредактированное представление либо признак исключения.
package redaction

import (
	"path/filepath"

	"github.com/aarondl/null/v8"

	"ticketing-attachments/internal/authz"
	"ticketing-attachments/internal/entities"
)

// AttachmentView — видимое клиенту представление вложения.
// Исключенное вложение не отличимо по форме ответа от несуществующего.
type AttachmentView struct {
	ID               uint64      `json:"id"`
	OriginalFilename string      `json:"original_filename"`
	Mime             null.String `json:"mime"`
	Size             null.Int64  `json:"size"`
	Checksum         null.String `json:"checksum"`
	SensitivityLevel string      `json:"sensitivity_level"`
	ScannedStatus    string      `json:"scanned_status"`
	CreatedAt        string      `json:"created_at"`
}

// Redact применяет правило по уровню чувствительности:
//   - REGULAR: метаданные без изменений;
//   - CONFIDENTIAL: нужна привилегия CONFIDENTIAL_VIEW, имя сводится к
//     расширению ("***.pdf"), размер обнуляется; без привилегии — исключение;
//   - RESTRICTED: нужна привилегия EXPORT_CONFIDENTIAL, метаданные целиком;
//     без привилегии — исключение.
//
// Второй результат false означает, что вложение исключается из выдачи.
func Redact(a *entities.Attachment, caps authz.CapabilitySet) (AttachmentView, bool) {
	view := AttachmentView{
		ID:               a.ID,
		OriginalFilename: a.OriginalFilename,
		Mime:             a.Mime,
		Size:             null.Int64From(a.Size),
		Checksum:         a.Checksum,
		SensitivityLevel: a.SensitivityLevel,
		ScannedStatus:    a.ScannedStatus,
		CreatedAt:        a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	switch a.SensitivityLevel {
	case entities.SensitivityRegular:
		return view, true

	case entities.SensitivityConfidential:
		if !caps.Has(authz.CapConfidentialView) {
			return AttachmentView{}, false
		}
		view.OriginalFilename = maskFilename(a.OriginalFilename)
		view.Size = null.Int64{}
		view.Checksum = null.String{}
		return view, true

	case entities.SensitivityRestricted:
		if !caps.Has(authz.CapExportConfidential) {
			return AttachmentView{}, false
		}
		return view, true

	default:
		// неизвестный уровень трактуем как самый закрытый
		return AttachmentView{}, false
	}
}

// RedactAll отображает срез вложений, опуская исключенные. Возвращает также
// идентификаторы реально попавших в выдачу вложений — для журнала аудита.
func RedactAll(attachments []entities.Attachment, caps authz.CapabilitySet) ([]AttachmentView, []uint64) {
	views := make([]AttachmentView, 0, len(attachments))
	ids := make([]uint64, 0, len(attachments))
	for i := range attachments {
		if view, ok := Redact(&attachments[i], caps); ok {
			views = append(views, view)
			ids = append(ids, attachments[i].ID)
		}
	}
	return views, ids
}

// maskFilename оставляет от имени только расширение: "report.pdf" -> "***.pdf".
func maskFilename(name string) string {
	ext := filepath.Ext(name)
	return "***" + ext
}
