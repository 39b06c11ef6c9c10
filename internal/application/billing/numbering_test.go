package billing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

func invoicePrefix(code string) string {
	now := time.Now()
	return fmt.Sprintf("FAC-%s-%d%02d", code, now.Year(), int(now.Month()))
}

func operationPrefix() string {
	now := time.Now()
	return fmt.Sprintf("OP-%02d-%02d-%d", now.Day(), int(now.Month()), now.Year())
}

func TestInvoiceNumber_CompteurPrincipal(t *testing.T) {
	s := newMemStore()
	gen := billing.NewSequenceNumberGenerator(&memCounterRepo{s}, &memInvoiceRepo{s}, &memOperationRepo{s})

	n1, err := gen.InvoiceNumber(context.Background(), "ABC")
	require.NoError(t, err)
	n2, err := gen.InvoiceNumber(context.Background(), "ABC")
	require.NoError(t, err)

	prefix := invoicePrefix("ABC")
	assert.Equal(t, prefix+"-0001", n1, "suffixe sur 4 chiffres")
	assert.Equal(t, prefix+"-0002", n2)

	// Un autre périmètre (autre clinique) a son propre compteur.
	other, err := gen.InvoiceNumber(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, invoicePrefix("XYZ")+"-0001", other)
}

func TestInvoiceNumber_CodeVide_PrendLeCodeParDefaut(t *testing.T) {
	s := newMemStore()
	gen := billing.NewSequenceNumberGenerator(&memCounterRepo{s}, &memInvoiceRepo{s}, &memOperationRepo{s})

	n, err := gen.InvoiceNumber(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, invoicePrefix(billing.DefaultClinicCode)+"-0001", n)
}

func TestInvoiceNumber_RepliSansCompteur(t *testing.T) {
	s := newMemStore()
	prefix := invoicePrefix("ABC")
	s.invoices["i1"] = entity.Invoice{ID: "i1", Number: prefix + "-0007"}

	// counters nil: seul le chemin de repli (scan du dernier numéro) est actif.
	gen := billing.NewSequenceNumberGenerator(nil, &memInvoiceRepo{s}, &memOperationRepo{s})
	n, err := gen.InvoiceNumber(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, prefix+"-0008", n)
}

func TestInvoiceNumber_RepliPerimetreVierge(t *testing.T) {
	s := newMemStore()
	gen := billing.NewSequenceNumberGenerator(nil, &memInvoiceRepo{s}, &memOperationRepo{s})
	n, err := gen.InvoiceNumber(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, invoicePrefix("ABC")+"-0001", n)
}

func TestInvoiceNumber_CollisionRegeneree(t *testing.T) {
	s := newMemStore()
	prefix := invoicePrefix("ABC")
	// Des numéros existent déjà en avance sur le compteur (données importées).
	s.invoices["i1"] = entity.Invoice{ID: "i1", Number: prefix + "-0001"}
	s.invoices["i2"] = entity.Invoice{ID: "i2", Number: prefix + "-0002"}

	gen := billing.NewSequenceNumberGenerator(&memCounterRepo{s}, &memInvoiceRepo{s}, &memOperationRepo{s})
	n, err := gen.InvoiceNumber(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, prefix+"-0003", n, "le compteur avance jusqu'au premier numéro libre")
}

func TestOperationReference_FormatJournalier(t *testing.T) {
	s := newMemStore()
	gen := billing.NewSequenceNumberGenerator(&memCounterRepo{s}, &memInvoiceRepo{s}, &memOperationRepo{s})

	r1, err := gen.OperationReference(context.Background())
	require.NoError(t, err)
	r2, err := gen.OperationReference(context.Background())
	require.NoError(t, err)

	prefix := operationPrefix()
	assert.Equal(t, prefix+"-001", r1, "suffixe sur 3 chiffres")
	assert.Equal(t, prefix+"-002", r2)
}

func TestOperationReference_RepliSansCompteur(t *testing.T) {
	s := newMemStore()
	prefix := operationPrefix()
	s.operations["o1"] = entity.Operation{ID: "o1", Reference: prefix + "-041"}

	gen := billing.NewSequenceNumberGenerator(nil, &memInvoiceRepo{s}, &memOperationRepo{s})
	r, err := gen.OperationReference(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prefix+"-042", r)
}
