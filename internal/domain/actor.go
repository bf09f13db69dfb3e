package domain

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an engine operation. It is resolved
// once per request and passed into every call that needs a rights check.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModerate is true for moderators and admins.
func (a Actor) CanModerate() bool {
	return a.Role == RoleAdmin || a.Role == RoleModerator
}

func (a Actor) Is(id uuid.UUID) bool {
	return a.ID == id
}

// Transactor runs fn as one atomic unit against the store. Repository calls
// made with the ctx passed to fn join the unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
