package models

import "time"

// Dashboard roles. Brand partners read usage data; admins also manage the
// tracker configuration and the log.
const (
	RoleBrandPartner = "brand_partner"
	RoleAdmin        = "admin"
)

// NormalizeRole maps an unknown or empty role to RoleBrandPartner.
func NormalizeRole(role string) string {
	if role == RoleAdmin {
		return RoleAdmin
	}
	return RoleBrandPartner
}

// Credentials is the signup and login body. Signup never carries a role.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// User is a dashboard account.
type User struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	HashedPassword []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Session is the body returned after signup or login.
type Session struct {
	Message   string `json:"message"`
	UserEmail string `json:"user_email"`
	Role      string `json:"role"`
}
