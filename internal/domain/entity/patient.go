package entity

import "time"

// Patient appartient à une clinique. Le rattachement est immuable après création:
// réaffecter un patient à une autre clinique n'est pas une opération supportée.
type Patient struct {
	ID        string
	ClinicID  string
	FirstName string
	LastName  string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
