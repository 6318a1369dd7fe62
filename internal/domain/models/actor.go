package models

// RoleAdmin may read any transaction and manage the buyer directory.
const RoleAdmin = "admin"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
