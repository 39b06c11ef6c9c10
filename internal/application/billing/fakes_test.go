package billing_test

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// memStore état partagé des repositories en mémoire. Les lectures retournent
// des copies pour imiter la sémantique d'une base: muter le résultat ne mute
// pas le store.
type memStore struct {
	clinics    map[string]entity.Clinic
	patients   map[string]entity.Patient
	products   map[string]entity.Product
	invoices   map[string]entity.Invoice
	lines      map[string][]entity.InvoiceLine
	payments   map[string]entity.Payment
	operations map[string]entity.Operation
	opLines    map[string][]entity.OperationLine
	counters   map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		clinics:    map[string]entity.Clinic{},
		patients:   map[string]entity.Patient{},
		products:   map[string]entity.Product{},
		invoices:   map[string]entity.Invoice{},
		lines:      map[string][]entity.InvoiceLine{},
		payments:   map[string]entity.Payment{},
		operations: map[string]entity.Operation{},
		opLines:    map[string][]entity.OperationLine{},
		counters:   map[string]int64{},
	}
}

func (s *memStore) snapshot() *memStore {
	clone := newMemStore()
	for k, v := range s.clinics {
		clone.clinics[k] = v
	}
	for k, v := range s.patients {
		clone.patients[k] = v
	}
	for k, v := range s.products {
		clone.products[k] = v
	}
	for k, v := range s.invoices {
		v.Lines, v.Payments = nil, nil
		clone.invoices[k] = v
	}
	for k, v := range s.lines {
		clone.lines[k] = append([]entity.InvoiceLine(nil), v...)
	}
	for k, v := range s.payments {
		clone.payments[k] = v
	}
	for k, v := range s.operations {
		v.Lines = nil
		clone.operations[k] = v
	}
	for k, v := range s.opLines {
		clone.opLines[k] = append([]entity.OperationLine(nil), v...)
	}
	for k, v := range s.counters {
		clone.counters[k] = v
	}
	return clone
}

func (s *memStore) restore(snap *memStore) {
	*s = *snap
}

func scopeMatches(scope domain.TenantScope, clinicID string) bool {
	return !scope.Filtered() || scope.ClinicID == clinicID
}

// Repos construit le bundle de repositories attaché au store.
func (s *memStore) Repos() billing.Repos {
	return billing.Repos{
		Patients:   &memPatientRepo{s},
		Products:   &memProductRepo{s},
		Invoices:   &memInvoiceRepo{s},
		Payments:   &memPaymentRepo{s},
		Operations: &memOperationRepo{s},
	}
}

// memTxRunner imite l'atomicité: snapshot avant fn, restauration si fn échoue.
type memTxRunner struct {
	store *memStore
}

func (r *memTxRunner) Run(_ context.Context, fn func(repos billing.Repos) error) error {
	snap := r.store.snapshot()
	if err := fn(r.store.Repos()); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// passRetryer exécute fn sans relance.
type passRetryer struct{}

func (passRetryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// captureAudit sink d'audit qui capture les entrées (ou échoue sur demande).
type captureAudit struct {
	entries []*entity.AuditLog
	fail    bool
}

func (a *captureAudit) Record(_ context.Context, entry *entity.AuditLog) error {
	if a.fail {
		return fmt.Errorf("sink d'audit indisponible")
	}
	a.entries = append(a.entries, entry)
	return nil
}

// ─── Repositories mémoire ────────────────────────────────────────────────────

type memPatientRepo struct{ s *memStore }

func (r *memPatientRepo) Create(_ context.Context, p *entity.Patient) error {
	r.s.patients[p.ID] = *p
	return nil
}

func (r *memPatientRepo) GetByID(_ context.Context, id string) (*entity.Patient, error) {
	p, ok := r.s.patients[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPatientRepo) GetScoped(_ context.Context, scope domain.TenantScope, id string) (*entity.Patient, error) {
	p, ok := r.s.patients[id]
	if !ok || !scopeMatches(scope, p.ClinicID) {
		return nil, nil
	}
	return &p, nil
}

func (r *memPatientRepo) List(_ context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Patient, error) {
	var out []*entity.Patient
	for _, p := range r.s.patients {
		if scopeMatches(scope, p.ClinicID) {
			pc := p
			out = append(out, &pc)
		}
	}
	return out, nil
}

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memProductRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			pc := p
			out = append(out, &pc)
		}
	}
	return out, nil
}

func (r *memProductRepo) GetScoped(_ context.Context, scope domain.TenantScope, id string) (*entity.Product, error) {
	p, ok := r.s.products[id]
	if !ok || !scopeMatches(scope, p.ClinicID) {
		return nil, nil
	}
	return &p, nil
}

func (r *memProductRepo) List(_ context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.s.products {
		if scopeMatches(scope, p.ClinicID) {
			pc := p
			out = append(out, &pc)
		}
	}
	return out, nil
}

func (r *memProductRepo) Update(_ context.Context, p *entity.Product) error {
	if _, ok := r.s.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) DecrementStock(_ context.Context, productID string, qty int64) error {
	p, ok := r.s.products[productID]
	if !ok || p.StockQty < qty {
		return domain.ErrInsufficientStock
	}
	p.StockQty -= qty
	r.s.products[productID] = p
	return nil
}

func (r *memProductRepo) IncrementStock(_ context.Context, productID string, qty int64) error {
	p, ok := r.s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.StockQty += qty
	r.s.products[productID] = p
	return nil
}

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	for _, existing := range r.s.invoices {
		if existing.Number == inv.Number {
			return fmt.Errorf("numéro %s: %w", inv.Number, domain.ErrDuplicate)
		}
	}
	cp := *inv
	cp.Lines, cp.Payments = nil, nil
	r.s.invoices[inv.ID] = cp
	return nil
}

func (r *memInvoiceRepo) CreateLine(_ context.Context, line *entity.InvoiceLine) error {
	r.s.lines[line.InvoiceID] = append(r.s.lines[line.InvoiceID], *line)
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *memInvoiceRepo) GetScoped(_ context.Context, scope domain.TenantScope, id string) (*entity.Invoice, error) {
	inv, ok := r.s.invoices[id]
	if !ok || !scopeMatches(scope, inv.ClinicID) {
		return nil, nil
	}
	return &inv, nil
}

func (r *memInvoiceRepo) GetLines(_ context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	var out []*entity.InvoiceLine
	for _, l := range r.s.lines[invoiceID] {
		lc := l
		out = append(out, &lc)
	}
	return out, nil
}

func (r *memInvoiceRepo) List(_ context.Context, scope domain.TenantScope, filters repository.InvoiceListFilters) ([]*entity.Invoice, int, error) {
	var all []*entity.Invoice
	for _, inv := range r.s.invoices {
		if !scopeMatches(scope, inv.ClinicID) {
			continue
		}
		if filters.Status != "" && inv.Status != filters.Status {
			continue
		}
		if filters.PatientID != "" && inv.PatientID != filters.PatientID {
			continue
		}
		if filters.StartDate != nil && inv.DateEmission.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && inv.DateEmission.After(*filters.EndDate) {
			continue
		}
		cp := inv
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Number > all[j].Number })
	total := len(all)
	start := filters.Offset()
	if start > total {
		start = total
	}
	end := start + filters.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *memInvoiceRepo) ListByStatuses(_ context.Context, scope domain.TenantScope, statuses []string, filters repository.ReliquatFilters) ([]*entity.Invoice, error) {
	wanted := map[string]struct{}{}
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}
	var out []*entity.Invoice
	for _, inv := range r.s.invoices {
		if !scopeMatches(scope, inv.ClinicID) {
			continue
		}
		if _, ok := wanted[inv.Status]; !ok {
			continue
		}
		if filters.PatientID != "" && inv.PatientID != filters.PatientID {
			continue
		}
		cp := inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memInvoiceRepo) UpdateTotals(_ context.Context, inv *entity.Invoice) error {
	stored, ok := r.s.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.TotalHT = inv.TotalHT
	stored.TotalTax = inv.TotalTax
	stored.TotalDiscount = inv.TotalDiscount
	stored.TotalTTC = inv.TotalTTC
	stored.Normalized = inv.Normalized
	stored.UpdatedAt = inv.UpdatedAt
	r.s.invoices[inv.ID] = stored
	return nil
}

func (r *memInvoiceRepo) UpdateStatus(_ context.Context, id, status string, amountPaid decimal.Decimal) error {
	stored, ok := r.s.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Status = status
	stored.AmountPaid = amountPaid
	r.s.invoices[id] = stored
	return nil
}

func (r *memInvoiceRepo) UpdateCancelled(_ context.Context, id, comment string) error {
	stored, ok := r.s.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Status = entity.InvoiceStatusAnnulee
	stored.Comment = comment
	r.s.invoices[id] = stored
	return nil
}

func (r *memInvoiceRepo) LastNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	last := ""
	for _, inv := range r.s.invoices {
		if strings.HasPrefix(inv.Number, prefix) && inv.Number > last {
			last = inv.Number
		}
	}
	return last, nil
}

func (r *memInvoiceRepo) NumberExists(_ context.Context, number string) (bool, error) {
	for _, inv := range r.s.invoices {
		if inv.Number == number {
			return true, nil
		}
	}
	return false, nil
}

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(_ context.Context, p *entity.Payment) error {
	r.s.payments[p.ID] = *p
	return nil
}

func (r *memPaymentRepo) GetByID(_ context.Context, id string) (*entity.Payment, error) {
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPaymentRepo) GetScoped(_ context.Context, scope domain.TenantScope, id string) (*entity.Payment, error) {
	p, ok := r.s.payments[id]
	if !ok || !scopeMatches(scope, p.ClinicID) {
		return nil, nil
	}
	return &p, nil
}

func (r *memPaymentRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.payments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.payments, id)
	return nil
}

func (r *memPaymentRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.Payment, error) {
	var out []*entity.Payment
	for _, p := range r.s.payments {
		if p.InvoiceID == invoiceID {
			pc := p
			out = append(out, &pc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memPaymentRepo) SumByInvoice(_ context.Context, invoiceID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.s.payments {
		if p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type memOperationRepo struct{ s *memStore }

func (r *memOperationRepo) Create(_ context.Context, op *entity.Operation) error {
	for _, existing := range r.s.operations {
		if existing.Reference == op.Reference {
			return fmt.Errorf("référence %s: %w", op.Reference, domain.ErrDuplicate)
		}
	}
	cp := *op
	cp.Lines = nil
	r.s.operations[op.ID] = cp
	return nil
}

func (r *memOperationRepo) CreateLine(_ context.Context, line *entity.OperationLine) error {
	r.s.opLines[line.OperationID] = append(r.s.opLines[line.OperationID], *line)
	return nil
}

func (r *memOperationRepo) GetByID(_ context.Context, id string) (*entity.Operation, error) {
	op, ok := r.s.operations[id]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

func (r *memOperationRepo) GetScoped(_ context.Context, scope domain.TenantScope, id string) (*entity.Operation, error) {
	op, ok := r.s.operations[id]
	if !ok || !scopeMatches(scope, op.ClinicID) {
		return nil, nil
	}
	return &op, nil
}

func (r *memOperationRepo) GetLines(_ context.Context, operationID string) ([]*entity.OperationLine, error) {
	var out []*entity.OperationLine
	for _, l := range r.s.opLines[operationID] {
		lc := l
		out = append(out, &lc)
	}
	return out, nil
}

func (r *memOperationRepo) List(_ context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Operation, error) {
	var out []*entity.Operation
	for _, op := range r.s.operations {
		if scopeMatches(scope, op.ClinicID) {
			cp := op
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memOperationRepo) LinkInvoice(_ context.Context, operationIDs []string, invoiceID string) error {
	for _, id := range operationIDs {
		op, ok := r.s.operations[id]
		if !ok {
			continue
		}
		op.InvoiceID = invoiceID
		r.s.operations[id] = op
	}
	return nil
}

func (r *memOperationRepo) MarkPaidByInvoice(_ context.Context, invoiceID string) error {
	for id, op := range r.s.operations {
		if op.InvoiceID == invoiceID {
			op.Status = entity.OperationStatusPayee
			r.s.operations[id] = op
		}
	}
	return nil
}

func (r *memOperationRepo) MarkRestantByInvoice(_ context.Context, invoiceID string) error {
	for id, op := range r.s.operations {
		if op.InvoiceID == invoiceID && op.Status != entity.OperationStatusPayee {
			op.Status = entity.OperationStatusRestant
			r.s.operations[id] = op
		}
	}
	return nil
}

func (r *memOperationRepo) LastReferenceWithPrefix(_ context.Context, prefix string) (string, error) {
	last := ""
	for _, op := range r.s.operations {
		if strings.HasPrefix(op.Reference, prefix) && op.Reference > last {
			last = op.Reference
		}
	}
	return last, nil
}

func (r *memOperationRepo) ReferenceExists(_ context.Context, reference string) (bool, error) {
	for _, op := range r.s.operations {
		if op.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

type memClinicRepo struct{ s *memStore }

func (r *memClinicRepo) Create(_ context.Context, c *entity.Clinic) error {
	r.s.clinics[c.ID] = *c
	return nil
}

func (r *memClinicRepo) GetByID(_ context.Context, id string) (*entity.Clinic, error) {
	c, ok := r.s.clinics[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memClinicRepo) GetByCode(_ context.Context, code string) (*entity.Clinic, error) {
	for _, c := range r.s.clinics {
		if c.Code == code {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

func (r *memClinicRepo) List(_ context.Context) ([]*entity.Clinic, error) {
	var out []*entity.Clinic
	for _, c := range r.s.clinics {
		cc := c
		out = append(out, &cc)
	}
	return out, nil
}

type memCounterRepo struct{ s *memStore }

func (r *memCounterRepo) Next(_ context.Context, scopeKey string) (int64, error) {
	r.s.counters[scopeKey]++
	return r.s.counters[scopeKey], nil
}
