package utils

import (
	"path/filepath"
	"strings"
)

// SafeFilename приводит имя файла из пользовательского ввода к безопасному
// для ключа объекта виду: только [a-zA-Z0-9._-], без разделителей путей.
func SafeFilename(name string) string {
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
