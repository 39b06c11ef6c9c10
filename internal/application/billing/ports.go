package billing

import (
	"context"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// Repos regroupe les repositories liés à une même transaction SQL.
type Repos struct {
	Patients   repository.PatientRepository
	Products   repository.ProductRepository
	Invoices   repository.InvoiceRepository
	Payments   repository.PaymentRepository
	Operations repository.OperationRepository
}

// TxRunner exécute fn dans une transaction de BD, en lui passant des
// repositories attachés à cette transaction. Commit si fn retourne nil,
// rollback sinon. C'est l'unité d'atomicité du moteur de facturation:
// création de facture + décrément de stock, annulation + restauration,
// paiement + recalcul de statut.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// Retryer exécute une unité de travail de stockage et la rejoue une fois
// après rafraîchissement de la connexion quand l'erreur est un défaut
// transitoire de cache de schéma. Toute autre erreur remonte inchangée.
type Retryer interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditSink reçoit les snapshots avant/après. Les échecs du sink sont
// journalisés et avalés par l'appelant: une panne d'audit ne doit jamais
// faire échouer l'opération métier.
type AuditSink interface {
	Record(ctx context.Context, entry *entity.AuditLog) error
}
