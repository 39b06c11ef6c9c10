package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Erreurs de domaine (sans dépendances externes).
var (
	ErrNotFound          = errors.New("ressource introuvable")
	ErrInvalidInput      = errors.New("entrée invalide")
	ErrDuplicate         = errors.New("ressource dupliquée")
	ErrUnauthorized      = errors.New("non autorisé")
	ErrForbidden         = errors.New("accès refusé")
	ErrTenantRequired    = errors.New("clinique requise pour un appel non privilégié")
	ErrClinicMismatch    = errors.New("la ressource n'appartient pas à cette clinique")
	ErrInsufficientStock = errors.New("stock insuffisant")
	ErrInvalidState      = errors.New("opération impossible dans l'état actuel")
	ErrOverpayment       = errors.New("le montant dépasse le solde restant")
	ErrAlreadyCancelled  = errors.New("la facture est déjà annulée")
)

// InsufficientStockError porte le produit et les quantités en cause.
// Unwrap vers ErrInsufficientStock pour errors.Is.
type InsufficientStockError struct {
	ProductLabel string
	Available    int64
	Requested    int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"stock insuffisant pour %s. Stock disponible: %d, Quantité demandée: %d",
		e.ProductLabel, e.Available, e.Requested,
	)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// OverpaymentError porte le montant proposé et le solde restant (en FCFA).
type OverpaymentError struct {
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf(
		"le montant du paiement (%s FCFA) dépasse le solde restant (%s FCFA)",
		e.Amount.String(), e.Remaining.String(),
	)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }
