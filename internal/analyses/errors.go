package analyses

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Roles with organization-wide visibility.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
)

// OrgLevel reports whether role may read every owner's records.
func OrgLevel(role string) bool {
	return role == RoleAdmin || role == RoleProjectManager
}

// Visible reports whether caller may read rec. Records a caller cannot read
// are reported as ErrNotFound so ids of other owners are not disclosed.
func Visible(caller Caller, rec Record) bool {
	return rec.OwnerID == caller.ID || OrgLevel(caller.Role)
}
