package entity

import "time"

// Rôles applicatifs. RoleSuperAdmin est l'appelant privilégié: il voit toutes
// les cliniques, le filtre tenant est omis pour lui.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleCaissier   = "caissier"
	RoleMedecin    = "medecin"
)

// User utilisateur de l'application (authentification + rôle).
type User struct {
	ID           string
	ClinicID     string // vide pour un super_admin
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
