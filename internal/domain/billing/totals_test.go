package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

// Ligne simple sans remise ni taxe: total = qty * prix.
func TestComputeLine_SansRemiseNiTaxe(t *testing.T) {
	amounts := ComputeLine(LineInput{Qty: 3, UnitPrice: d("500")})

	assert.True(t, amounts.Subtotal.Equal(d("1500")))
	assert.True(t, amounts.DiscountAmount.IsZero())
	assert.True(t, amounts.AfterDiscount.Equal(d("1500")))
	assert.True(t, amounts.TaxAmount.IsZero())
	assert.True(t, amounts.Total.Equal(d("1500")))
}

// Remise 10% puis TVA 18% sur le montant remisé, plus surtaxe fixe.
func TestComputeLine_RemiseTaxeEtSurtaxe(t *testing.T) {
	amounts := ComputeLine(LineInput{
		Qty:           2,
		UnitPrice:     d("1000"),
		Discount:      d("10"),
		TaxPercent:    d("18"),
		TaxSpecifique: d("50"),
	})

	assert.True(t, amounts.Subtotal.Equal(d("2000")))
	assert.True(t, amounts.DiscountAmount.Equal(d("200")))
	assert.True(t, amounts.AfterDiscount.Equal(d("1800")))
	assert.True(t, amounts.TaxAmount.Equal(d("324")), "18%% de 1800")
	assert.True(t, amounts.Total.Equal(d("2174")), "1800 + 324 + 50")
}

// Les agrégats de document sont les sommes des valeurs de ligne correspondantes.
func TestComputeTotals_Agregats(t *testing.T) {
	lines := []LineAmounts{
		ComputeLine(LineInput{Qty: 2, UnitPrice: d("1000"), Discount: d("10"), TaxPercent: d("18"), TaxSpecifique: d("50")}),
		ComputeLine(LineInput{Qty: 1, UnitPrice: d("300")}),
	}

	totals := ComputeTotals(lines)

	assert.True(t, totals.TotalHT.Equal(d("2100")), "1800 + 300")
	assert.True(t, totals.TotalTax.Equal(d("374")), "324 + 50")
	assert.True(t, totals.TotalDiscount.Equal(d("200")))
	assert.True(t, totals.TotalTTC.Equal(d("2474")), "2174 + 300")
}

// Recalculer deux fois sans changement de lignes donne des totaux identiques.
func TestComputeTotals_Idempotent(t *testing.T) {
	lines := []LineAmounts{
		ComputeLine(LineInput{Qty: 4, UnitPrice: d("750"), Discount: d("5"), TaxPercent: d("18")}),
	}

	first := ComputeTotals(lines)
	second := ComputeTotals(lines)

	assert.True(t, first.TotalHT.Equal(second.TotalHT))
	assert.True(t, first.TotalTax.Equal(second.TotalTax))
	assert.True(t, first.TotalDiscount.Equal(second.TotalDiscount))
	assert.True(t, first.TotalTTC.Equal(second.TotalTTC))
}

func TestDeriveStatus(t *testing.T) {
	total := d("1000")

	tests := []struct {
		name    string
		current string
		paid    decimal.Decimal
		want    string
	}{
		{"aucun paiement", entity.InvoiceStatusEnAttente, d("0"), entity.InvoiceStatusEnAttente},
		{"paiement partiel", entity.InvoiceStatusEnAttente, d("400"), entity.InvoiceStatusPartielle},
		{"paiement complet", entity.InvoiceStatusPartielle, d("1000"), entity.InvoiceStatusPayee},
		{"surpaiement tolere au calcul", entity.InvoiceStatusPartielle, d("1200"), entity.InvoiceStatusPayee},
		{"annulee reste annulee", entity.InvoiceStatusAnnulee, d("1000"), entity.InvoiceStatusAnnulee},
		{"annulee sans paiement", entity.InvoiceStatusAnnulee, d("0"), entity.InvoiceStatusAnnulee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.current, tt.paid, total))
		})
	}
}
