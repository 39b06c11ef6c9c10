package entity

import "github.com/shopspring/decimal"

// InvoiceLine représente une ligne de facture. Les lignes sont immuables après
// création: une correction passe par annulation + recréation, ou normalisation.
type InvoiceLine struct {
	ID            string
	InvoiceID     string
	ProductID     string
	Qty           int64
	UnitPrice     decimal.Decimal
	Discount      decimal.Decimal // remise en pourcentage
	Tax           decimal.Decimal // montant de taxe calculé
	TaxSpecifique decimal.Decimal // surtaxe spécifique à la ligne
	Total         decimal.Decimal // total ligne calculé
}
