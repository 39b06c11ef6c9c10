package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	domainbilling "github.com/tidianefall/cliniq-api/internal/domain/billing"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
	"github.com/tidianefall/cliniq-api/pkg/logger"
)

// maxCreateAttempts réessais de la transaction de création quand l'insert de
// la facture détecte une violation d'unicité sur le numéro (course résiduelle
// de la numérotation).
const maxCreateAttempts = 3

// InvoiceLineInput ligne de la demande de création de facture.
type InvoiceLineInput struct {
	ProductID     string
	Qty           int64
	UnitPrice     decimal.Decimal
	Discount      decimal.Decimal // pourcentage, 0 par défaut
	TaxSpecifique decimal.Decimal // surtaxe ligne, 0 par défaut
}

// CreateInvoiceInput demande de création de facture. Le tenant de la facture
// est TOUJOURS hérité du patient; le scope de l'appelant ne sert qu'à la
// vérification croisée.
type CreateInvoiceInput struct {
	PatientID    string
	Lines        []InvoiceLineInput
	Comment      string
	ModePayment  string
	CreatedBy    string
	OperationIDs []string
}

// InvoicePage page de factures avec métadonnées de pagination.
type InvoicePage struct {
	Invoices   []*entity.Invoice
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// InvoiceEngine crée, normalise et annule les factures, et dérive leur statut
// de paiement. La création décrémente le stock des médicaments et
// l'annulation le restaure, dans la même unité atomique que la facture.
type InvoiceEngine struct {
	tx         TxRunner
	retry      Retryer
	patients   repository.PatientRepository
	products   repository.ProductRepository
	invoices   repository.InvoiceRepository
	payments   repository.PaymentRepository
	operations repository.OperationRepository
	clinics    repository.ClinicRepository
	numbers    *SequenceNumberGenerator
	audit      AuditSink
	log        *logger.Logger
}

// NewInvoiceEngine construit le moteur de facturation.
func NewInvoiceEngine(
	tx TxRunner,
	retry Retryer,
	patients repository.PatientRepository,
	products repository.ProductRepository,
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	operations repository.OperationRepository,
	clinics repository.ClinicRepository,
	numbers *SequenceNumberGenerator,
	audit AuditSink,
	log *logger.Logger,
) *InvoiceEngine {
	return &InvoiceEngine{
		tx:         tx,
		retry:      retry,
		patients:   patients,
		products:   products,
		invoices:   invoices,
		payments:   payments,
		operations: operations,
		clinics:    clinics,
		numbers:    numbers,
		audit:      audit,
		log:        log,
	}
}

// withRetry enveloppe une unité de travail de stockage dans le Retryer.
func withRetry(r Retryer, ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil {
		return fn(ctx)
	}
	return r.Do(ctx, fn)
}

// recordAudit écrit un log d'audit en best-effort: l'échec est journalisé,
// jamais propagé.
func (e *InvoiceEngine) recordAudit(ctx context.Context, entry *entity.AuditLog) {
	if e.audit == nil || entry.UserID == "" {
		return
	}
	if err := e.audit.Record(ctx, entry); err != nil && e.log != nil {
		e.log.Warn().Err(err).
			Str("entity", entry.Entity).
			Str("entity_id", entry.EntityID).
			Str("action", entry.Action).
			Msg("écriture du log d'audit échouée")
	}
}

func marshalAudit(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// CreateInvoice crée une facture avec ses lignes, décrémente le stock des
// médicaments et lie les opérations fournies, le tout en une transaction.
func (e *InvoiceEngine) CreateInvoice(ctx context.Context, scope domain.TenantScope, in CreateInvoiceInput) (*entity.Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if in.PatientID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, line := range in.Lines {
		if line.ProductID == "" || line.Qty <= 0 || line.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		if line.Discount.IsNegative() || line.Discount.GreaterThan(decimal.NewFromInt(100)) {
			return nil, domain.ErrInvalidInput
		}
	}

	var created *entity.Invoice
	err := withRetry(e.retry, ctx, func(ctx context.Context) error {
		// Vérifier le patient et récupérer sa clinique.
		patient, err := e.patients.GetByID(ctx, in.PatientID)
		if err != nil {
			return err
		}
		if patient == nil {
			return fmt.Errorf("patient %s: %w", in.PatientID, domain.ErrNotFound)
		}
		// Défense centrale contre la facturation inter-cliniques: le patient
		// doit appartenir à la clinique de l'appelant non privilégié.
		if scope.Filtered() && scope.ClinicID != patient.ClinicID {
			return domain.ErrClinicMismatch
		}

		// Charger les produits référencés (lecture seule, hors tx).
		productsByID, err := e.loadProducts(ctx, in.Lines)
		if err != nil {
			return err
		}

		// Vérification de stock amont pour un message d'erreur complet; le
		// garde définitif reste le décrément conditionnel dans la transaction.
		for _, line := range in.Lines {
			product := productsByID[line.ProductID]
			if product.StockTracked() && product.StockQty < line.Qty {
				return &domain.InsufficientStockError{
					ProductLabel: product.Label,
					Available:    product.StockQty,
					Requested:    line.Qty,
				}
			}
		}

		clinicCode := DefaultClinicCode
		if clinic, err := e.clinics.GetByID(ctx, patient.ClinicID); err == nil && clinic != nil && clinic.Code != "" {
			clinicCode = clinic.Code
		}

		for attempt := 0; attempt < maxCreateAttempts; attempt++ {
			number, err := e.numbers.InvoiceNumber(ctx, clinicCode)
			if err != nil {
				return err
			}
			inv, err := e.createTx(ctx, patient, productsByID, number, in)
			if err == nil {
				created = inv
				return nil
			}
			// Course résiduelle sur le numéro: régénérer et rejouer la tx.
			if errors.Is(err, domain.ErrDuplicate) {
				continue
			}
			return err
		}
		return fmt.Errorf("création de facture: %w", domain.ErrDuplicate)
	})
	if err != nil {
		return nil, err
	}

	e.recordAudit(ctx, &entity.AuditLog{
		UserID:    in.CreatedBy,
		Entity:    "INVOICE",
		EntityID:  created.ID,
		Action:    entity.AuditActionCreate,
		NewValue:  marshalAudit(created),
		InvoiceID: created.ID,
	})
	return created, nil
}

// loadProducts charge toutes les lignes et échoue si un produit manque.
func (e *InvoiceEngine) loadProducts(ctx context.Context, lines []InvoiceLineInput) (map[string]*entity.Product, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	products, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("produit %s: %w", id, domain.ErrNotFound)
		}
	}
	return byID, nil
}

// createTx exécute l'unité atomique: insert facture + lignes, décrément de
// stock des médicaments, liaison des opérations.
func (e *InvoiceEngine) createTx(
	ctx context.Context,
	patient *entity.Patient,
	productsByID map[string]*entity.Product,
	number string,
	in CreateInvoiceInput,
) (*entity.Invoice, error) {
	now := time.Now()
	inv := &entity.Invoice{
		ID:           uuid.New().String(),
		ClinicID:     patient.ClinicID, // hérité du patient, jamais de l'appelant
		PatientID:    patient.ID,
		Number:       number,
		DateEmission: now,
		AmountPaid:   decimal.Zero,
		Status:       entity.InvoiceStatusEnAttente,
		ModePayment:  in.ModePayment,
		Comment:      in.Comment,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	lineAmounts := make([]domainbilling.LineAmounts, 0, len(in.Lines))
	for _, line := range in.Lines {
		product := productsByID[line.ProductID]
		amounts := domainbilling.ComputeLine(domainbilling.LineInput{
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			Discount:      line.Discount,
			TaxPercent:    product.TaxPercent,
			TaxSpecifique: line.TaxSpecifique,
		})
		lineAmounts = append(lineAmounts, amounts)
		inv.Lines = append(inv.Lines, &entity.InvoiceLine{
			ID:            uuid.New().String(),
			InvoiceID:     inv.ID,
			ProductID:     line.ProductID,
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			Discount:      line.Discount,
			Tax:           amounts.TaxAmount,
			TaxSpecifique: line.TaxSpecifique,
			Total:         amounts.Total,
		})
	}
	totals := domainbilling.ComputeTotals(lineAmounts)
	inv.TotalHT = totals.TotalHT
	inv.TotalTax = totals.TotalTax
	inv.TotalDiscount = totals.TotalDiscount
	inv.TotalTTC = totals.TotalTTC

	err := e.tx.Run(ctx, func(r Repos) error {
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, line := range inv.Lines {
			if err := r.Invoices.CreateLine(ctx, line); err != nil {
				return err
			}
		}
		// Décrément conditionnel: le stock ne passe jamais sous zéro, même
		// sous concurrence.
		for _, line := range in.Lines {
			product := productsByID[line.ProductID]
			if !product.StockTracked() {
				continue
			}
			if err := r.Products.DecrementStock(ctx, product.ID, line.Qty); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					return &domain.InsufficientStockError{
						ProductLabel: product.Label,
						Available:    product.StockQty,
						Requested:    line.Qty,
					}
				}
				return err
			}
		}
		if len(in.OperationIDs) > 0 {
			if err := r.Operations.LinkInvoice(ctx, in.OperationIDs, inv.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// NormalizeInvoice recalcule les quatre agrégats depuis les lignes stockées
// (même formule que la création) et pose normalized = true. Ne touche ni le
// stock ni les paiements.
func (e *InvoiceEngine) NormalizeInvoice(ctx context.Context, id, actorID string) (*entity.Invoice, error) {
	var before, after *entity.Invoice
	err := withRetry(e.retry, ctx, func(ctx context.Context) error {
		return e.tx.Run(ctx, func(r Repos) error {
			inv, err := r.Invoices.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if inv == nil {
				return fmt.Errorf("facture %s: %w", id, domain.ErrNotFound)
			}
			lines, err := r.Invoices.GetLines(ctx, id)
			if err != nil {
				return err
			}
			snapshot := *inv
			before = &snapshot

			// La TVA est re-dérivée du taux produit courant, comme à la création.
			productsByID := make(map[string]*entity.Product)
			for _, line := range lines {
				if _, ok := productsByID[line.ProductID]; ok {
					continue
				}
				product, err := r.Products.GetByID(ctx, line.ProductID)
				if err != nil {
					return err
				}
				if product == nil {
					return fmt.Errorf("produit %s: %w", line.ProductID, domain.ErrNotFound)
				}
				productsByID[line.ProductID] = product
			}

			lineAmounts := make([]domainbilling.LineAmounts, 0, len(lines))
			for _, line := range lines {
				lineAmounts = append(lineAmounts, domainbilling.ComputeLine(domainbilling.LineInput{
					Qty:           line.Qty,
					UnitPrice:     line.UnitPrice,
					Discount:      line.Discount,
					TaxPercent:    productsByID[line.ProductID].TaxPercent,
					TaxSpecifique: line.TaxSpecifique,
				}))
			}
			totals := domainbilling.ComputeTotals(lineAmounts)
			inv.TotalHT = totals.TotalHT
			inv.TotalTax = totals.TotalTax
			inv.TotalDiscount = totals.TotalDiscount
			inv.TotalTTC = totals.TotalTTC
			inv.Normalized = true
			inv.UpdatedAt = time.Now()
			if err := r.Invoices.UpdateTotals(ctx, inv); err != nil {
				return err
			}
			inv.Lines = lines
			after = inv
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.recordAudit(ctx, &entity.AuditLog{
		UserID:    actorID,
		Entity:    "INVOICE",
		EntityID:  id,
		Action:    entity.AuditActionNormalize,
		OldValue:  marshalAudit(before),
		NewValue:  marshalAudit(after),
		InvoiceID: id,
	})
	return after, nil
}

// CancelInvoice annule une facture: restaure exactement les quantités
// décrémentées à la création (lignes médicament), pose le statut ANNULEE et
// enrichit le commentaire. Irréversible.
func (e *InvoiceEngine) CancelInvoice(ctx context.Context, id, reason, actorID string) (*entity.Invoice, error) {
	var before, after *entity.Invoice
	err := withRetry(e.retry, ctx, func(ctx context.Context) error {
		return e.tx.Run(ctx, func(r Repos) error {
			inv, err := r.Invoices.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if inv == nil {
				return fmt.Errorf("facture %s: %w", id, domain.ErrNotFound)
			}
			if inv.Status == entity.InvoiceStatusAnnulee {
				return domain.ErrAlreadyCancelled
			}
			snapshot := *inv
			before = &snapshot

			lines, err := r.Invoices.GetLines(ctx, id)
			if err != nil {
				return err
			}
			// Restauration exacte, pas un recalcul: on rend ligne par ligne
			// la quantité décrémentée à la création.
			for _, line := range lines {
				product, err := r.Products.GetByID(ctx, line.ProductID)
				if err != nil {
					return err
				}
				if product == nil || !product.StockTracked() {
					continue
				}
				if err := r.Products.IncrementStock(ctx, product.ID, line.Qty); err != nil {
					return err
				}
			}

			comment := inv.Comment
			if reason != "" {
				if comment != "" {
					comment += "\n"
				}
				comment += "[ANNULÉE] " + reason
			}
			if err := r.Invoices.UpdateCancelled(ctx, id, comment); err != nil {
				return err
			}
			inv.Status = entity.InvoiceStatusAnnulee
			inv.Comment = comment
			inv.UpdatedAt = time.Now()
			inv.Lines = lines
			after = inv
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.recordAudit(ctx, &entity.AuditLog{
		UserID:    actorID,
		Entity:    "INVOICE",
		EntityID:  id,
		Action:    entity.AuditActionCancel,
		OldValue:  marshalAudit(before),
		NewValue:  marshalAudit(after),
		InvoiceID: id,
	})
	return after, nil
}

// UpdateInvoiceStatus recalcule amount_paid et le statut depuis la somme des
// paiements. Transactionnel et réutilisable par le livre des paiements.
func (e *InvoiceEngine) UpdateInvoiceStatus(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	var updated *entity.Invoice
	err := withRetry(e.retry, ctx, func(ctx context.Context) error {
		return e.tx.Run(ctx, func(r Repos) error {
			inv, err := updateInvoiceStatusTx(ctx, r, invoiceID)
			if err != nil {
				return err
			}
			updated = inv
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// updateInvoiceStatusTx recalcul de statut dans une transaction existante.
// ANNULEE n'est jamais écrasé: un recalcul déclenché par un paiement tardif ne
// doit pas ressusciter une facture annulée. Quand la facture devient PAYEE,
// les opérations liées passent aussi en PAYEE.
func updateInvoiceStatusTx(ctx context.Context, r Repos, invoiceID string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("facture %s: %w", invoiceID, domain.ErrNotFound)
	}
	totalPaid, err := r.Payments.SumByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	status := domainbilling.DeriveStatus(inv.Status, totalPaid, inv.TotalTTC)
	if status == entity.InvoiceStatusAnnulee {
		// Rien à écrire: l'annulation est terminale.
		return inv, nil
	}
	if err := r.Invoices.UpdateStatus(ctx, invoiceID, status, totalPaid); err != nil {
		return nil, err
	}
	inv.Status = status
	inv.AmountPaid = totalPaid

	if status == entity.InvoiceStatusPayee {
		if err := r.Operations.MarkPaidByInvoice(ctx, invoiceID); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// GetInvoice charge une facture avec lignes et paiements. Le prédicat tenant
// est combiné à l'id dans la même requête: absence et mauvaise clinique sont
// indistinguables.
func (e *InvoiceEngine) GetInvoice(ctx context.Context, scope domain.TenantScope, id string) (*entity.Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var inv *entity.Invoice
	err := withRetry(e.retry, ctx, func(ctx context.Context) error {
		found, err := e.invoices.GetScoped(ctx, scope, id)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("facture %s: %w", id, domain.ErrNotFound)
		}
		if found.Lines, err = e.invoices.GetLines(ctx, id); err != nil {
			return err
		}
		if found.Payments, err = e.payments.ListByInvoice(ctx, id); err != nil {
			return err
		}
		inv = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices liste les factures du scope avec filtres explicites et
// pagination. Le filtre clinique est appliqué au niveau SQL.
func (e *InvoiceEngine) ListInvoices(ctx context.Context, scope domain.TenantScope, filters repository.InvoiceListFilters) (*InvoicePage, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	filters.Normalize()
	var page *InvoicePage
	err := withRetry(e.retry, ctx, func(ctx context.Context) error {
		invoices, total, err := e.invoices.List(ctx, scope, filters)
		if err != nil {
			return err
		}
		totalPages := total / filters.Limit
		if total%filters.Limit != 0 {
			totalPages++
		}
		page = &InvoicePage{
			Invoices:   invoices,
			Page:       filters.Page,
			Limit:      filters.Limit,
			Total:      total,
			TotalPages: totalPages,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
