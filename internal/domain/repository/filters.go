package repository

import "time"

// InvoiceListFilters filtres explicites du listing de factures. Pas de sac de
// champs dynamique: tout champ filtrable est énuméré ici.
type InvoiceListFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	PatientID string
	Page      int
	Limit     int
}

// Normalize applique les valeurs par défaut de pagination.
func (f *InvoiceListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// Offset dérivé de Page/Limit.
func (f InvoiceListFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ReliquatFilters filtres des requêtes de reliquats et créances.
type ReliquatFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	PatientID string
}

// AuditLogFilters filtres du listing des logs d'audit.
type AuditLogFilters struct {
	UserID    string
	Entity    string
	EntityID  string
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// Normalize applique les valeurs par défaut de pagination.
func (f *AuditLogFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
}
