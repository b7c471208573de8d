// internal/authz/capabilities.go
package authz

import "strings"

// --- СПИСОК ПРИВИЛЕГИЙ, ВЛИЯЮЩИХ НА ВИДИМОСТЬ ВЛОЖЕНИЙ ---

const (
	// Просмотр конфиденциальных тикетов и вложений
	CapConfidentialView = "CONFIDENTIAL_VIEW"
	// Экспорт ограниченных (RESTRICTED) вложений
	CapExportConfidential = "EXPORT_CONFIDENTIAL"
)

// CapabilitySet — множество привилегий запрашивающего. Правила редактирования
// работают с членством в множестве и не зависят от строкового представления.
type CapabilitySet map[string]struct{}

// ParseCapabilities разбирает список привилегий через запятую
// (формат колонки roles.permissions).
func ParseCapabilities(raw string) CapabilitySet {
	set := make(CapabilitySet)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

func NewCapabilitySet(names ...string) CapabilitySet {
	set := make(CapabilitySet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func (s CapabilitySet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names возвращает срез имен привилегий для сериализации в кеш.
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	return names
}
