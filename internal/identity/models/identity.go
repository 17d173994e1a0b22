package models

import "time"

// Role classifies a directory account. Messaging authorization is driven
// entirely off this value.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleBusiness   Role = "business"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleIndividual, RoleBusiness, RoleAdmin:
		return true
	}
	return false
}

// Identity is an authenticated principal. PasswordHash never leaves the
// identity module.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicIdentity is the subset safe to attach to messages and conversation
// listings for display.
type PublicIdentity struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
}

// Public projects the display fields.
func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:          i.ID,
		Role:        i.Role,
		DisplayName: i.DisplayName,
	}
}

// LoginRequest is the credential exchange payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	Identity    PublicIdentity `json:"identity"`
}
