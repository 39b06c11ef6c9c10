package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statuts d'opération: reflètent l'état de paiement de la facture liée.
const (
	OperationStatusEnAttente = "EN_ATTENTE"
	OperationStatusRestant   = "RESTANT" // facture liée partiellement payée
	OperationStatusPayee     = "PAYEE"
)

// Operation représente un acte clinique, optionnellement lié à une facture.
// Le statut est maintenu cohérent avec la facture par le réconciliateur de
// reliquats, pas par la facture elle-même.
type Operation struct {
	ID        string
	ClinicID  string
	PatientID string
	Reference string // unique, format OP-DD-MM-YYYY-NNN
	InvoiceID string // vide tant que non facturée
	Status    string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	Lines []*OperationLine
}

// OperationLine ligne d'acte (produit, quantité, prix).
type OperationLine struct {
	ID          string
	OperationID string
	ProductID   string
	Qty         int64
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}
