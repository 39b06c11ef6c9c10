package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/application/dto"
)

// PaymentHandler gère les requêtes HTTP des paiements (protégé).
type PaymentHandler struct {
	ledger *billing.PaymentLedger
}

// NewPaymentHandler construit le handler.
func NewPaymentHandler(ledger *billing.PaymentLedger) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// Create enregistre un paiement et retourne la facture recalculée.
// POST /api/invoices/:id/payments
func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	var in dto.CreatePaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	payment, invoice, err := h.ledger.AddPayment(c.Context(), ScopeFromCtx(c), billing.AddPaymentInput{
		InvoiceID: invoiceID,
		Amount:    in.Amount,
		Method:    in.Method,
		Reference: in.Reference,
		CreatedBy: GetUserID(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PaymentResultResponse{
		Payment: dto.ToPaymentResponse(payment),
		Invoice: dto.ToInvoiceResponse(invoice),
	})
}

// List liste les paiements d'une facture.
// GET /api/invoices/:id/payments
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	payments, err := h.ledger.ListPayments(c.Context(), ScopeFromCtx(c), invoiceID)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, dto.ToPaymentResponse(p))
	}
	return c.JSON(resp)
}

// Delete supprime un paiement et retourne la facture recalculée.
// DELETE /api/payments/:id
func (h *PaymentHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	invoice, err := h.ledger.DeletePayment(c.Context(), ScopeFromCtx(c), id, GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToInvoiceResponse(invoice))
}
