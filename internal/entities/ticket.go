package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

const (
	TicketStatusOpen   = "OPEN"
	TicketStatusClosed = "CLOSED"
)

type Ticket struct {
	ID               uint64      `db:"id"`
	CreatedBy        null.Uint64 `db:"created_by"`
	OwnerOrgUnitID   null.Uint64 `db:"owner_org_unit_id"`
	Title            string      `db:"title"`
	Description      string      `db:"description"`
	Priority         string      `db:"priority"`
	Status           string      `db:"status"`
	SensitivityLevel string      `db:"sensitivity_level"`
	CreatedAt        time.Time   `db:"created_at"`
	ClosedAt         null.Time   `db:"closed_at"`
}

type TicketMessage struct {
	ID        uint64      `db:"id"`
	TicketID  uint64      `db:"ticket_id"`
	AuthorID  null.Uint64 `db:"author_id"`
	Type      string      `db:"type"`
	Body      string      `db:"body"`
	CreatedAt time.Time   `db:"created_at"`
}
