package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

type User struct {
	ID         uint64      `db:"id"`
	Username   string      `db:"username"`
	Email      null.String `db:"email"`
	RoleID     null.Uint64 `db:"role_id"`
	OrgUnitID  null.Uint64 `db:"org_unit_id"`
	ScopeLevel string      `db:"scope_level"`
	CreatedAt  time.Time   `db:"created_at"`
}

type Role struct {
	ID   uint64 `db:"id"`
	Name string `db:"name"`
	// привилегии через запятую, разбираются в authz.CapabilitySet
	Permissions null.String `db:"permissions"`
}
