package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/pkg/logger"
)

// AddPaymentInput demande d'enregistrement d'un paiement.
type AddPaymentInput struct {
	InvoiceID string
	Amount    decimal.Decimal
	Method    string
	Reference string
	CreatedBy string
}

// PaymentLedger enregistre et supprime des paiements; chaque mutation
// recalcule amount_paid et le statut de la facture dans la même transaction.
type PaymentLedger struct {
	tx    TxRunner
	retry Retryer
	audit AuditSink
	log   *logger.Logger
}

// NewPaymentLedger construit le livre des paiements.
func NewPaymentLedger(tx TxRunner, retry Retryer, audit AuditSink, log *logger.Logger) *PaymentLedger {
	return &PaymentLedger{tx: tx, retry: retry, audit: audit, log: log}
}

func (l *PaymentLedger) recordAudit(ctx context.Context, entry *entity.AuditLog) {
	if l.audit == nil || entry.UserID == "" {
		return
	}
	if err := l.audit.Record(ctx, entry); err != nil && l.log != nil {
		l.log.Warn().Err(err).
			Str("entity", entry.Entity).
			Str("entity_id", entry.EntityID).
			Str("action", entry.Action).
			Msg("écriture du log d'audit échouée")
	}
}

// AddPayment enregistre un paiement et recalcule le statut de la facture.
// Rejette les surpaiements (le montant ne peut dépasser le reliquat) et les
// paiements sur facture annulée. La somme des paiements existants est lue
// dans la transaction: deux paiements concurrents ne peuvent pas dépasser le
// total à deux.
func (l *PaymentLedger) AddPayment(ctx context.Context, scope domain.TenantScope, in AddPaymentInput) (*entity.Payment, *entity.Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	if in.InvoiceID == "" || !in.Amount.IsPositive() {
		return nil, nil, domain.ErrInvalidInput
	}
	method := entity.NormalizePaymentMethod(in.Method)
	if method == "" {
		return nil, nil, fmt.Errorf("moyen de paiement %q inconnu: %w", in.Method, domain.ErrInvalidInput)
	}

	var (
		payment *entity.Payment
		invoice *entity.Invoice
	)
	err := withRetry(l.retry, ctx, func(ctx context.Context) error {
		return l.tx.Run(ctx, func(r Repos) error {
			inv, err := r.Invoices.GetScoped(ctx, scope, in.InvoiceID)
			if err != nil {
				return err
			}
			if inv == nil {
				return fmt.Errorf("facture %s: %w", in.InvoiceID, domain.ErrNotFound)
			}
			if inv.Status == entity.InvoiceStatusAnnulee {
				return fmt.Errorf("paiement sur facture annulée: %w", domain.ErrInvalidState)
			}

			totalPaid, err := r.Payments.SumByInvoice(ctx, in.InvoiceID)
			if err != nil {
				return err
			}
			remaining := inv.TotalTTC.Sub(totalPaid)
			if in.Amount.GreaterThan(remaining) {
				return &domain.OverpaymentError{Amount: in.Amount, Remaining: remaining}
			}

			payment = &entity.Payment{
				ID:        uuid.New().String(),
				InvoiceID: inv.ID,
				ClinicID:  inv.ClinicID, // copié depuis la facture
				Amount:    in.Amount,
				Method:    method,
				Reference: in.Reference,
				CreatedBy: in.CreatedBy,
				CreatedAt: time.Now(),
			}
			if err := r.Payments.Create(ctx, payment); err != nil {
				return err
			}
			invoice, err = updateInvoiceStatusTx(ctx, r, inv.ID)
			return err
		})
	})
	if err != nil {
		return nil, nil, err
	}

	l.recordAudit(ctx, &entity.AuditLog{
		UserID:    in.CreatedBy,
		Entity:    "PAYMENT",
		EntityID:  payment.ID,
		Action:    entity.AuditActionCreate,
		NewValue:  marshalAudit(payment),
		InvoiceID: payment.InvoiceID,
	})
	return payment, invoice, nil
}

// DeletePayment supprime un paiement et recalcule le statut de la facture:
// une facture PAYEE peut redevenir PARTIELLE ou EN_ATTENTE.
func (l *PaymentLedger) DeletePayment(ctx context.Context, scope domain.TenantScope, paymentID, actorID string) (*entity.Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var (
		deleted *entity.Payment
		invoice *entity.Invoice
	)
	err := withRetry(l.retry, ctx, func(ctx context.Context) error {
		return l.tx.Run(ctx, func(r Repos) error {
			// Id et prédicat tenant dans la même requête: absence et mauvaise
			// clinique retournent la même erreur.
			payment, err := r.Payments.GetScoped(ctx, scope, paymentID)
			if err != nil {
				return err
			}
			if payment == nil {
				return fmt.Errorf("paiement %s: %w", paymentID, domain.ErrNotFound)
			}
			if err := r.Payments.Delete(ctx, paymentID); err != nil {
				return err
			}
			deleted = payment
			invoice, err = updateInvoiceStatusTx(ctx, r, payment.InvoiceID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	l.recordAudit(ctx, &entity.AuditLog{
		UserID:    actorID,
		Entity:    "PAYMENT",
		EntityID:  deleted.ID,
		Action:    entity.AuditActionDelete,
		OldValue:  marshalAudit(deleted),
		InvoiceID: deleted.InvoiceID,
	})
	return invoice, nil
}

// ListPayments liste les paiements d'une facture visible dans le scope.
func (l *PaymentLedger) ListPayments(ctx context.Context, scope domain.TenantScope, invoiceID string) ([]*entity.Payment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var payments []*entity.Payment
	err := withRetry(l.retry, ctx, func(ctx context.Context) error {
		return l.tx.Run(ctx, func(r Repos) error {
			inv, err := r.Invoices.GetScoped(ctx, scope, invoiceID)
			if err != nil {
				return err
			}
			if inv == nil {
				return fmt.Errorf("facture %s: %w", invoiceID, domain.ErrNotFound)
			}
			payments, err = r.Payments.ListByInvoice(ctx, invoiceID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}
