package models

import "time"

// Role enumerates user roles recognised by the API.
type Role string

const (
	RoleTeacher        Role = "teacher"
	RoleAdmin          Role = "admin"
	RoleDepartmentHead Role = "department_head"
	RoleSchoolAdmin    Role = "school_admin"
)

// Valid reports whether the role is one of the recognised values.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleAdmin, RoleDepartmentHead, RoleSchoolAdmin:
		return true
	default:
		return false
	}
}

// User represents an account provisioned by the identity provider.
// Users are never hard-deleted; Active=false marks a disabled account.
type User struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	FullName       string    `db:"full_name" json:"full_name"`
	Role           Role      `db:"role" json:"role"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter narrows down user listings (admin surface).
type UserFilter struct {
	Search   string
	Role     Role
	Active   *bool
	Page     int
	PageSize int
}
