package billing

import (
	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// cent divise les pourcentages (remise, TVA).
var cent = decimal.NewFromInt(100)

// LineInput entrée du calcul d'une ligne de facture.
type LineInput struct {
	Qty           int64
	UnitPrice     decimal.Decimal
	Discount      decimal.Decimal // pourcentage
	TaxPercent    decimal.Decimal // pourcentage (TVA du produit)
	TaxSpecifique decimal.Decimal // surtaxe en valeur absolue
}

// LineAmounts montants calculés d'une ligne.
type LineAmounts struct {
	Subtotal       decimal.Decimal // qty * unitPrice
	DiscountAmount decimal.Decimal // subtotal * discount/100
	AfterDiscount  decimal.Decimal
	TaxAmount      decimal.Decimal // afterDiscount * taxPercent/100
	TaxSpecifique  decimal.Decimal
	Total          decimal.Decimal // afterDiscount + taxAmount + taxSpecifique
}

// Totals les quatre agrégats monétaires d'une facture.
type Totals struct {
	TotalHT       decimal.Decimal // somme des montants après remise
	TotalTax      decimal.Decimal // somme des taxes + surtaxes
	TotalDiscount decimal.Decimal // somme des remises
	TotalTTC      decimal.Decimal // somme des totaux de ligne
}

// ComputeLine applique la formule de ligne:
// subtotal = qty*unitPrice; discountAmount = subtotal*discount/100;
// afterDiscount = subtotal-discountAmount; taxAmount = afterDiscount*taxPercent/100;
// total = afterDiscount + taxAmount + taxSpecifique.
func ComputeLine(in LineInput) LineAmounts {
	subtotal := decimal.NewFromInt(in.Qty).Mul(in.UnitPrice)
	discountAmount := subtotal.Mul(in.Discount).Div(cent)
	afterDiscount := subtotal.Sub(discountAmount)
	taxAmount := afterDiscount.Mul(in.TaxPercent).Div(cent)
	return LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		AfterDiscount:  afterDiscount,
		TaxAmount:      taxAmount,
		TaxSpecifique:  in.TaxSpecifique,
		Total:          afterDiscount.Add(taxAmount).Add(in.TaxSpecifique),
	}
}

// ComputeTotals agrège les montants de ligne en totaux de document.
func ComputeTotals(lines []LineAmounts) Totals {
	var t Totals
	t.TotalHT = decimal.Zero
	t.TotalTax = decimal.Zero
	t.TotalDiscount = decimal.Zero
	t.TotalTTC = decimal.Zero
	for _, l := range lines {
		t.TotalHT = t.TotalHT.Add(l.AfterDiscount)
		t.TotalTax = t.TotalTax.Add(l.TaxAmount).Add(l.TaxSpecifique)
		t.TotalDiscount = t.TotalDiscount.Add(l.DiscountAmount)
		t.TotalTTC = t.TotalTTC.Add(l.Total)
	}
	return t
}

// DeriveStatus dérive le statut d'une facture depuis le montant payé.
// ANNULEE est collant: on ne l'écrase jamais, même si un recalcul de paiement
// arrive après l'annulation.
func DeriveStatus(current string, totalPaid, totalTTC decimal.Decimal) string {
	if current == entity.InvoiceStatusAnnulee {
		return entity.InvoiceStatusAnnulee
	}
	switch {
	case totalPaid.GreaterThanOrEqual(totalTTC):
		return entity.InvoiceStatusPayee
	case totalPaid.GreaterThan(decimal.Zero):
		return entity.InvoiceStatusPartielle
	default:
		return entity.InvoiceStatusEnAttente
	}
}
