package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Moyens de paiement (Afrique de l'Ouest, XOF). Doivent correspondre au CHECK
// de la table payments.
const (
	MethodEspeces       = "especes"
	MethodOrangeMoney   = "orange_money"
	MethodMTNMobile     = "mtn_mobile_money"
	MethodMoovMoney     = "moov_money"
	MethodWave          = "wave"
	MethodFlooz         = "flooz"
	MethodTMoney        = "t_money"
	MethodCarteBancaire = "carte_bancaire"
	MethodVirement      = "virement"
	MethodCheque        = "cheque"
	MethodPriseEnCharge = "prise_en_charge"
)

// validMethods ensemble des valeurs acceptées.
var validMethods = map[string]struct{}{
	MethodEspeces: {}, MethodOrangeMoney: {}, MethodMTNMobile: {},
	MethodMoovMoney: {}, MethodWave: {}, MethodFlooz: {}, MethodTMoney: {},
	MethodCarteBancaire: {}, MethodVirement: {}, MethodCheque: {},
	MethodPriseEnCharge: {},
}

// legacyMethods anciens codes (MAJUSCULES) encore présents dans les données.
var legacyMethods = map[string]string{
	"ESPECE":    MethodEspeces,
	"ESPECES":   MethodEspeces,
	"CARTE":     MethodCarteBancaire,
	"CB":        MethodCarteBancaire,
	"MOBILE":    MethodOrangeMoney,
	"ASSURANCE": MethodPriseEnCharge,
	"VIREMENT":  MethodVirement,
	"CHEQUE":    MethodCheque,
}

// NormalizePaymentMethod ramène un moyen de paiement à sa forme canonique.
// Retourne "" si la valeur est inconnue.
func NormalizePaymentMethod(method string) string {
	lower := strings.ToLower(strings.TrimSpace(method))
	if _, ok := validMethods[lower]; ok {
		return lower
	}
	if canonical, ok := legacyMethods[strings.ToUpper(strings.TrimSpace(method))]; ok {
		return canonical
	}
	return ""
}

// Payment représente un paiement rattaché à une facture. Append-only; la
// suppression existe mais déclenche toujours un recalcul de statut.
// ClinicID est copié depuis la facture, jamais fourni par l'appelant.
type Payment struct {
	ID        string
	InvoiceID string
	ClinicID  string
	Amount    decimal.Decimal
	Method    string
	Reference string
	CreatedBy string
	CreatedAt time.Time
}
