package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	domainbilling "github.com/tidianefall/cliniq-api/internal/domain/billing"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
	"github.com/tidianefall/cliniq-api/pkg/logger"
)

// ReliquatEntry reliquat d'une facture: solde restant dû calculé à la volée,
// jamais stocké.
type ReliquatEntry struct {
	Invoice   *entity.Invoice
	Remaining decimal.Decimal
}

// ReliquatReconciler expose les soldes restants dus et resynchronise le
// statut facture + opérations liées après toute dérive (import de données,
// correction manuelle).
type ReliquatReconciler struct {
	tx       TxRunner
	retry    Retryer
	invoices repository.InvoiceRepository
	log      *logger.Logger
}

// NewReliquatReconciler construit le réconciliateur.
func NewReliquatReconciler(tx TxRunner, retry Retryer, invoices repository.InvoiceRepository, log *logger.Logger) *ReliquatReconciler {
	return &ReliquatReconciler{tx: tx, retry: retry, invoices: invoices, log: log}
}

// ListReliquats liste les factures du scope dont le solde est strictement
// positif (statuts EN_ATTENTE et PARTIELLE), avec le reliquat calculé.
func (rc *ReliquatReconciler) ListReliquats(ctx context.Context, scope domain.TenantScope, filters repository.ReliquatFilters) ([]*ReliquatEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var entries []*ReliquatEntry
	err := withRetry(rc.retry, ctx, func(ctx context.Context) error {
		invoices, err := rc.invoices.ListByStatuses(ctx, scope,
			[]string{entity.InvoiceStatusEnAttente, entity.InvoiceStatusPartielle}, filters)
		if err != nil {
			return err
		}
		entries = make([]*ReliquatEntry, 0, len(invoices))
		for _, inv := range invoices {
			remaining := inv.Remaining()
			if !remaining.IsPositive() {
				continue
			}
			entries = append(entries, &ReliquatEntry{Invoice: inv, Remaining: remaining})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// TotalReceivables somme des reliquats du scope (encours de créances).
func (rc *ReliquatReconciler) TotalReceivables(ctx context.Context, scope domain.TenantScope, filters repository.ReliquatFilters) (decimal.Decimal, error) {
	entries, err := rc.ListReliquats(ctx, scope, filters)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Remaining)
	}
	return total, nil
}

// UpdateReliquatForInvoice resynchronise une facture et ses opérations liées
// depuis la somme réelle des paiements. Les factures annulées ne sont jamais
// resynchronisées. Règle de propagation:
//   - solde nul           -> facture PAYEE, opérations liées PAYEE
//   - paiement partiel    -> facture PARTIELLE, opérations non payées RESTANT
//   - aucun paiement      -> facture EN_ATTENTE, opérations inchangées
func (rc *ReliquatReconciler) UpdateReliquatForInvoice(ctx context.Context, scope domain.TenantScope, invoiceID string) (*entity.Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var updated *entity.Invoice
	err := withRetry(rc.retry, ctx, func(ctx context.Context) error {
		return rc.tx.Run(ctx, func(r Repos) error {
			inv, err := r.Invoices.GetScoped(ctx, scope, invoiceID)
			if err != nil {
				return err
			}
			if inv == nil {
				return fmt.Errorf("facture %s: %w", invoiceID, domain.ErrNotFound)
			}
			if inv.Status == entity.InvoiceStatusAnnulee {
				return fmt.Errorf("facture annulée: %w", domain.ErrInvalidState)
			}

			totalPaid, err := r.Payments.SumByInvoice(ctx, invoiceID)
			if err != nil {
				return err
			}
			status := domainbilling.DeriveStatus(inv.Status, totalPaid, inv.TotalTTC)
			if err := r.Invoices.UpdateStatus(ctx, invoiceID, status, totalPaid); err != nil {
				return err
			}
			inv.Status = status
			inv.AmountPaid = totalPaid

			switch status {
			case entity.InvoiceStatusPayee:
				if err := r.Operations.MarkPaidByInvoice(ctx, invoiceID); err != nil {
					return err
				}
			case entity.InvoiceStatusPartielle:
				if err := r.Operations.MarkRestantByInvoice(ctx, invoiceID); err != nil {
					return err
				}
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
