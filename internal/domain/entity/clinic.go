package entity

import "time"

// Clinic représente une clinique, l'unité d'isolation du système (multi-tenant).
// Chaque Patient, Product, Invoice, Payment et Operation appartient à exactement
// une clinique; l'identifiant est dénormalisé sur chaque ligne pour permettre
// une validation indépendante du rattachement via le patient.
type Clinic struct {
	ID        string
	Code      string // code court unique, utilisé dans les numéros de facture (FAC-CODE-...)
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
