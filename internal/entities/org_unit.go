package entities

import "github.com/aarondl/null/v8"

// OrgUnit — узел организационного дерева с материализованным путем
// вида /00000001/00000002. Вхождение в область видимости проверяется
// сравнением префиксов путей.
type OrgUnit struct {
	ID       uint64      `db:"id"`
	ParentID null.Uint64 `db:"parent_id"`
	Type     string      `db:"type"`
	Name     string      `db:"name"`
	Path     string      `db:"path"`
	Depth    int         `db:"depth"`
}
