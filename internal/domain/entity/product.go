package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryMedicament est la catégorie suivie en stock: la création de facture
// décrémente StockQty, l'annulation le restaure. Les autres catégories
// (actes, consultations, examens) n'ont pas de stock.
const CategoryMedicament = "Medicament"

// Product représente un produit ou acte facturable d'une clinique.
// StockQty ne descend jamais sous zéro (garanti au niveau SQL).
type Product struct {
	ID         string
	ClinicID   string
	Label      string
	Category   string          // Medicament, Acte, Consultation, Examen...
	UnitPrice  decimal.Decimal // prix de vente en FCFA
	TaxPercent decimal.Decimal // TVA en pourcentage (0, 18...)
	StockQty   int64           // quantité en stock (Medicament uniquement)
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StockTracked indique si les mouvements de facturation touchent le stock.
func (p *Product) StockTracked() bool {
	return p.Category == CategoryMedicament
}
