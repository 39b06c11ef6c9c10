package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

func TestNormalizePaymentMethod(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		// Formes canoniques, insensibles à la casse et aux espaces.
		{"especes", entity.MethodEspeces},
		{"WAVE", entity.MethodWave},
		{"  orange_money  ", entity.MethodOrangeMoney},
		{"prise_en_charge", entity.MethodPriseEnCharge},
		// Codes hérités en majuscules.
		{"ESPECE", entity.MethodEspeces},
		{"ESPECES", entity.MethodEspeces},
		{"CARTE", entity.MethodCarteBancaire},
		{"CB", entity.MethodCarteBancaire},
		{"MOBILE", entity.MethodOrangeMoney},
		{"ASSURANCE", entity.MethodPriseEnCharge},
		{"VIREMENT", entity.MethodVirement},
		{"cheque", entity.MethodCheque},
		// Valeurs inconnues.
		{"", ""},
		{"troc", ""},
		{"bitcoin", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, entity.NormalizePaymentMethod(c.in), "entrée %q", c.in)
	}
}
