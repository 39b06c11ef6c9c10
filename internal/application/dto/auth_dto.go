package dto

import "time"

// LoginRequest body de POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest body de POST /api/auth/register.
type RegisterRequest struct {
	ClinicID string `json:"clinic_id,omitempty"` // vide pour un super_admin
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// UserResponse utilisateur dans les réponses (jamais le hash).
type UserResponse struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id,omitempty"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginResponse token + utilisateur.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
