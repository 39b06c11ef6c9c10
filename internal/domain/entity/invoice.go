package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statuts de facture. ANNULEE est terminal: aucun recalcul de paiement ne doit
// ressusciter une facture annulée.
const (
	InvoiceStatusEnAttente = "EN_ATTENTE" // créée, aucun paiement
	InvoiceStatusPartielle = "PARTIELLE"  // paiement partiel
	InvoiceStatusPayee     = "PAYEE"      // totalement couverte
	InvoiceStatusAnnulee   = "ANNULEE"    // annulée, stock restauré, irréversible
)

// Invoice représente l'en-tête d'une facture. ClinicID est copié depuis le
// patient à la création, jamais fourni par l'appelant.
type Invoice struct {
	ID            string
	ClinicID      string
	PatientID     string
	Number        string // unique, format FAC-CODE-YYYYMM-NNNN
	DateEmission  time.Time
	TotalHT       decimal.Decimal
	TotalTax      decimal.Decimal
	TotalDiscount decimal.Decimal
	TotalTTC      decimal.Decimal
	AmountPaid    decimal.Decimal
	Status        string
	Normalized    bool
	ModePayment   string
	Comment       string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Lines    []*InvoiceLine // chargées à la demande
	Payments []*Payment
}

// Remaining calcule le reliquat (solde restant dû).
func (i *Invoice) Remaining() decimal.Decimal {
	return i.TotalTTC.Sub(i.AmountPaid)
}
