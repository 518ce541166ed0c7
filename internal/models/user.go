package models

import "time"

type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"` // guest, host, both
	Location    *Location `json:"location,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// PromotedRole returns the role an account holds after becoming a host.
func PromotedRole(role string) string {
	switch role {
	case RoleHost, RoleBoth:
		return role
	default:
		return RoleBoth
	}
}
