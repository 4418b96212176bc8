package models

// Permission is the role a user holds inside a group (shared vault).
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// Valid reports whether p is one of the known roles.
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// CanWrite reports whether p allows ordinary item writes.
func (p Permission) CanWrite() bool {
	return p == PermissionWrite || p == PermissionAdmin
}

// IsAdmin reports whether p allows elevated operations: writing shared items
// keys and detaching or deleting items owned by other members.
func (p Permission) IsAdmin() bool {
	return p == PermissionAdmin
}
