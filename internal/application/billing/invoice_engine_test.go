package billing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
	"github.com/tidianefall/cliniq-api/pkg/logger"
)

const (
	clinicA = "clinic-a"
	clinicB = "clinic-b"

	patientA = "patient-a"
	patientB = "patient-b"

	productMed  = "product-med"  // médicament, stock suivi
	productActe = "product-acte" // consultation, pas de stock
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fixture struct {
	store      *memStore
	audit      *captureAudit
	engine     *billing.InvoiceEngine
	ledger     *billing.PaymentLedger
	reconciler *billing.ReliquatReconciler
	ops        *billing.OperationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newMemStore()
	now := time.Now()
	s.clinics[clinicA] = entity.Clinic{ID: clinicA, Code: "ABC", Name: "Clinique A", Active: true, CreatedAt: now}
	s.clinics[clinicB] = entity.Clinic{ID: clinicB, Code: "XYZ", Name: "Clinique B", Active: true, CreatedAt: now}
	s.patients[patientA] = entity.Patient{ID: patientA, ClinicID: clinicA, FirstName: "Awa", LastName: "Diop"}
	s.patients[patientB] = entity.Patient{ID: patientB, ClinicID: clinicB, FirstName: "Moussa", LastName: "Traoré"}
	s.products[productMed] = entity.Product{
		ID: productMed, ClinicID: clinicA, Label: "Paracétamol 500mg",
		Category: entity.CategoryMedicament, UnitPrice: d("500"), TaxPercent: d("18"), StockQty: 10,
	}
	s.products[productActe] = entity.Product{
		ID: productActe, ClinicID: clinicA, Label: "Consultation générale",
		Category: "Consultation", UnitPrice: d("5000"), TaxPercent: decimal.Zero,
	}

	tx := &memTxRunner{store: s}
	audit := &captureAudit{}
	numbers := billing.NewSequenceNumberGenerator(&memCounterRepo{s}, &memInvoiceRepo{s}, &memOperationRepo{s})
	log := logger.Nop()
	return &fixture{
		store: s,
		audit: audit,
		engine: billing.NewInvoiceEngine(
			tx, passRetryer{},
			&memPatientRepo{s}, &memProductRepo{s}, &memInvoiceRepo{s},
			&memPaymentRepo{s}, &memOperationRepo{s}, &memClinicRepo{s},
			numbers, audit, log,
		),
		ledger:     billing.NewPaymentLedger(tx, passRetryer{}, audit, log),
		reconciler: billing.NewReliquatReconciler(tx, passRetryer{}, &memInvoiceRepo{s}, log),
		ops:        billing.NewOperationService(tx, passRetryer{}, &memPatientRepo{s}, &memOperationRepo{s}, numbers, log),
	}
}

func (f *fixture) createInvoice(t *testing.T, in billing.CreateInvoiceInput) *entity.Invoice {
	t.Helper()
	inv, err := f.engine.CreateInvoice(context.Background(), domain.ClinicScope(clinicA), in)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func TestCreateInvoice_TotauxEtDecrementStock(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID: patientA,
		CreatedBy: "user-1",
		Lines: []billing.InvoiceLineInput{
			{ProductID: productMed, Qty: 4, UnitPrice: d("500"), Discount: d("10")},
			{ProductID: productActe, Qty: 1, UnitPrice: d("5000")},
		},
	})

	// Ligne 1: 4*500=2000, remise 10% => 1800, TVA 18% => 324, total 2124.
	// Ligne 2: 5000, pas de taxe.
	assert.True(t, d("6800").Equal(inv.TotalHT), "total HT: %s", inv.TotalHT)
	assert.True(t, d("324").Equal(inv.TotalTax), "total taxe: %s", inv.TotalTax)
	assert.True(t, d("200").Equal(inv.TotalDiscount), "total remise: %s", inv.TotalDiscount)
	assert.True(t, d("7124").Equal(inv.TotalTTC), "total TTC: %s", inv.TotalTTC)
	assert.Equal(t, entity.InvoiceStatusEnAttente, inv.Status)
	assert.Equal(t, clinicA, inv.ClinicID, "le tenant vient du patient")

	// Seul le médicament est décrémenté.
	assert.Equal(t, int64(6), f.store.products[productMed].StockQty)
	assert.Equal(t, int64(0), f.store.products[productActe].StockQty)

	// Numéro au format FAC-CODE-YYYYMM-NNNN.
	now := time.Now()
	wantPrefix := fmt.Sprintf("FAC-ABC-%d%02d-", now.Year(), int(now.Month()))
	assert.Equal(t, wantPrefix+"0001", inv.Number)

	// Audit best-effort enregistré.
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, entity.AuditActionCreate, f.audit.entries[0].Action)
}

func TestCreateInvoice_NumerosCroissants(t *testing.T) {
	f := newFixture(t)
	in := billing.CreateInvoiceInput{
		PatientID: patientA,
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
	}
	first := f.createInvoice(t, in)
	second := f.createInvoice(t, in)
	assert.NotEqual(t, first.Number, second.Number)
	assert.Greater(t, second.Number, first.Number)
}

func TestCreateInvoice_StockInsuffisant_RollbackComplet(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateInvoice(context.Background(), domain.ClinicScope(clinicA), billing.CreateInvoiceInput{
		PatientID: patientA,
		Lines: []billing.InvoiceLineInput{
			{ProductID: productActe, Qty: 1, UnitPrice: d("5000")},
			{ProductID: productMed, Qty: 50, UnitPrice: d("500")},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Paracétamol 500mg")
	assert.Contains(t, err.Error(), "10")
	assert.Contains(t, err.Error(), "50")

	// Rien n'est persisté: ni facture, ni lignes, stock intact.
	assert.Empty(t, f.store.invoices)
	assert.Empty(t, f.store.lines)
	assert.Equal(t, int64(10), f.store.products[productMed].StockQty)
}

func TestCreateInvoice_PatientAutreClinique_Rejete(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateInvoice(context.Background(), domain.ClinicScope(clinicA), billing.CreateInvoiceInput{
		PatientID: patientB, // appartient à la clinique B
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
	})
	assert.ErrorIs(t, err, domain.ErrClinicMismatch)
	assert.Empty(t, f.store.invoices)
}

func TestCreateInvoice_ScopePrivilegie_HeriteDuPatient(t *testing.T) {
	f := newFixture(t)
	inv, err := f.engine.CreateInvoice(context.Background(), domain.PrivilegedScope(), billing.CreateInvoiceInput{
		PatientID: patientB,
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("3000")}},
	})
	require.NoError(t, err)
	assert.Equal(t, clinicB, inv.ClinicID)
	// Le code clinique du numéro est celui de la clinique du patient.
	assert.Contains(t, inv.Number, "FAC-XYZ-")
}

func TestCreateInvoice_EntreesInvalides(t *testing.T) {
	f := newFixture(t)
	scope := domain.ClinicScope(clinicA)
	cases := []billing.CreateInvoiceInput{
		{},
		{PatientID: patientA},
		{PatientID: patientA, Lines: []billing.InvoiceLineInput{{ProductID: productMed, Qty: 0, UnitPrice: d("500")}}},
		{PatientID: patientA, Lines: []billing.InvoiceLineInput{{ProductID: productMed, Qty: 1, UnitPrice: d("-1")}}},
		{PatientID: patientA, Lines: []billing.InvoiceLineInput{{ProductID: productMed, Qty: 1, UnitPrice: d("500"), Discount: d("101")}}},
	}
	for i, in := range cases {
		_, err := f.engine.CreateInvoice(context.Background(), scope, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "cas %d", i)
	}
}

func TestCreateInvoice_LieLesOperations(t *testing.T) {
	f := newFixture(t)
	op, err := f.ops.CreateOperation(context.Background(), domain.ClinicScope(clinicA), billing.CreateOperationInput{
		PatientID: patientA,
		Lines:     []billing.OperationLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
	})
	require.NoError(t, err)

	inv := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID:    patientA,
		Lines:        []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
		OperationIDs: []string{op.ID},
	})
	assert.Equal(t, inv.ID, f.store.operations[op.ID].InvoiceID)
}

func TestCancelInvoice_RestaureLeStockExactement(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID: patientA,
		Comment:   "visite du matin",
		Lines: []billing.InvoiceLineInput{
			{ProductID: productMed, Qty: 4, UnitPrice: d("500")},
			{ProductID: productActe, Qty: 1, UnitPrice: d("5000")},
		},
	})
	require.Equal(t, int64(6), f.store.products[productMed].StockQty)

	cancelled, err := f.engine.CancelInvoice(context.Background(), inv.ID, "erreur de saisie", "user-2")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusAnnulee, cancelled.Status)
	assert.Equal(t, "visite du matin\n[ANNULÉE] erreur de saisie", cancelled.Comment)

	// Stock restauré à l'identique, acte non touché.
	assert.Equal(t, int64(10), f.store.products[productMed].StockQty)
	assert.Equal(t, int64(0), f.store.products[productActe].StockQty)
}

func TestCancelInvoice_DejaAnnulee(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID: patientA,
		Lines:     []billing.InvoiceLineInput{{ProductID: productMed, Qty: 2, UnitPrice: d("500")}},
	})
	_, err := f.engine.CancelInvoice(context.Background(), inv.ID, "premier motif", "user-1")
	require.NoError(t, err)

	_, err = f.engine.CancelInvoice(context.Background(), inv.ID, "second motif", "user-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	// Le stock n'est pas restauré deux fois.
	assert.Equal(t, int64(10), f.store.products[productMed].StockQty)
}

func TestNormalizeInvoice_RecalculeDepuisLesLignes(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID: patientA,
		Lines:     []billing.InvoiceLineInput{{ProductID: productMed, Qty: 4, UnitPrice: d("500"), Discount: d("10")}},
	})

	// Corrompre les agrégats stockés pour simuler une dérive.
	stored := f.store.invoices[inv.ID]
	stored.TotalTTC = d("999999")
	stored.TotalHT = decimal.Zero
	f.store.invoices[inv.ID] = stored

	normalized, err := f.engine.NormalizeInvoice(context.Background(), inv.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, inv.TotalTTC.Equal(normalized.TotalTTC), "TTC recalculé: %s", normalized.TotalTTC)
	assert.True(t, inv.TotalHT.Equal(normalized.TotalHT))
	assert.True(t, normalized.Normalized)
	// Idempotent: une seconde normalisation ne change rien.
	again, err := f.engine.NormalizeInvoice(context.Background(), inv.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, normalized.TotalTTC.Equal(again.TotalTTC))
}

func TestGetInvoice_IsolationTenant(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID: patientA,
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
	})

	// La clinique B ne voit pas la facture: même erreur qu'une absence.
	_, err := f.engine.GetInvoice(context.Background(), domain.ClinicScope(clinicB), inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Un scope sans clinique ni privilège est rejeté.
	_, err = f.engine.GetInvoice(context.Background(), domain.TenantScope{}, inv.ID)
	assert.ErrorIs(t, err, domain.ErrTenantRequired)

	// Le super admin voit tout.
	got, err := f.engine.GetInvoice(context.Background(), domain.PrivilegedScope(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Len(t, got.Lines, 1)
}

func TestCreateInvoice_ScopeObligatoire(t *testing.T) {
	f := newFixture(t)
	// Ni clinique ni privilège: rejet franc, pas une erreur de visibilité.
	_, err := f.engine.CreateInvoice(context.Background(), domain.TenantScope{}, billing.CreateInvoiceInput{
		PatientID: patientA,
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
	})
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
	assert.NotErrorIs(t, err, domain.ErrClinicMismatch)
	assert.Empty(t, f.store.invoices)
}

func TestListInvoices_IsolationTenantEtPagination(t *testing.T) {
	f := newFixture(t)
	invA := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID: patientA,
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
	})
	invB, err := f.engine.CreateInvoice(context.Background(), domain.PrivilegedScope(), billing.CreateInvoiceInput{
		PatientID: patientB,
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("3000")}},
	})
	require.NoError(t, err)

	// Chaque clinique ne voit que ses factures.
	pageA, err := f.engine.ListInvoices(context.Background(), domain.ClinicScope(clinicA), repository.InvoiceListFilters{})
	require.NoError(t, err)
	require.Len(t, pageA.Invoices, 1)
	assert.Equal(t, invA.ID, pageA.Invoices[0].ID)
	assert.Equal(t, 1, pageA.Total)

	pageB, err := f.engine.ListInvoices(context.Background(), domain.ClinicScope(clinicB), repository.InvoiceListFilters{})
	require.NoError(t, err)
	require.Len(t, pageB.Invoices, 1)
	assert.Equal(t, invB.ID, pageB.Invoices[0].ID)

	// Le super admin voit tout.
	all, err := f.engine.ListInvoices(context.Background(), domain.PrivilegedScope(), repository.InvoiceListFilters{})
	require.NoError(t, err)
	assert.Len(t, all.Invoices, 2)
	assert.Equal(t, 2, all.Total)

	// Un scope sans clinique ni privilège est rejeté.
	_, err = f.engine.ListInvoices(context.Background(), domain.TenantScope{}, repository.InvoiceListFilters{})
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
}

func TestListInvoices_MetadonneesDePagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.createInvoice(t, billing.CreateInvoiceInput{
			PatientID: patientA,
			Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
		})
	}

	page, err := f.engine.ListInvoices(context.Background(), domain.ClinicScope(clinicA), repository.InvoiceListFilters{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Invoices, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	last, err := f.engine.ListInvoices(context.Background(), domain.ClinicScope(clinicA), repository.InvoiceListFilters{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, last.Invoices, 1)
	assert.Equal(t, 2, last.TotalPages)

	// Limite hors bornes ramenée au défaut par Normalize.
	norm, err := f.engine.ListInvoices(context.Background(), domain.ClinicScope(clinicA), repository.InvoiceListFilters{Page: 0, Limit: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, norm.Page)
	assert.Equal(t, 20, norm.Limit)
	assert.Equal(t, 1, norm.TotalPages)
}

func TestCreateInvoice_AuditEnPanne_NEchouePas(t *testing.T) {
	f := newFixture(t)
	f.audit.fail = true
	inv := f.createInvoice(t, billing.CreateInvoiceInput{
		PatientID: patientA,
		CreatedBy: "user-1",
		Lines:     []billing.InvoiceLineInput{{ProductID: productActe, Qty: 1, UnitPrice: d("5000")}},
	})
	assert.NotNil(t, inv, "la panne du sink d'audit ne doit pas annuler la création")
	assert.Len(t, f.store.invoices, 1)
}
