package model

import "time"

// RoleName identifies one of the closed set of roles known to the backend.
type RoleName string

const (
	RoleAdmin   RoleName = "ADMIN"
	RoleManager RoleName = "MANAGER"
	RoleMember  RoleName = "MEMBER"
)

// Role is a structured role assignment as returned by the backend.
type Role struct {
	ID   string   `json:"id"`
	Name RoleName `json:"name"`
}

// User is a platform account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Enabled   bool      `json:"enabled"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether the user holds the given role.
func (u User) HasRole(name RoleName) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
