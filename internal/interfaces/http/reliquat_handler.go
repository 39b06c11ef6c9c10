package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/application/dto"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// ReliquatHandler gère les requêtes HTTP des reliquats (protégé).
type ReliquatHandler struct {
	reconciler *billing.ReliquatReconciler
}

// NewReliquatHandler construit le handler.
func NewReliquatHandler(reconciler *billing.ReliquatReconciler) *ReliquatHandler {
	return &ReliquatHandler{reconciler: reconciler}
}

func reliquatFilters(c *fiber.Ctx) (repository.ReliquatFilters, error) {
	filters := repository.ReliquatFilters{PatientID: c.Query("patient_id")}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filters, err
		}
		filters.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filters, err
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filters.EndDate = &end
	}
	return filters, nil
}

// List liste les factures à solde positif avec leur reliquat et l'encours total.
// GET /api/reliquats?patient_id=&start_date=&end_date=
func (h *ReliquatHandler) List(c *fiber.Ctx) error {
	filters, err := reliquatFilters(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "dates: format attendu YYYY-MM-DD"})
	}
	entries, err := h.reconciler.ListReliquats(c.Context(), ScopeFromCtx(c), filters)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := dto.ReliquatListResponse{
		Reliquats: make([]dto.ReliquatResponse, 0, len(entries)),
		Total:     decimal.Zero,
	}
	for _, e := range entries {
		resp.Reliquats = append(resp.Reliquats, dto.ReliquatResponse{
			InvoiceID:    e.Invoice.ID,
			Number:       e.Invoice.Number,
			PatientID:    e.Invoice.PatientID,
			TotalTTC:     e.Invoice.TotalTTC,
			AmountPaid:   e.Invoice.AmountPaid,
			Remaining:    e.Remaining,
			Status:       e.Invoice.Status,
			DateEmission: e.Invoice.DateEmission,
		})
		resp.Total = resp.Total.Add(e.Remaining)
	}
	return c.JSON(resp)
}

// Sync resynchronise le statut d'une facture et de ses opérations liées.
// POST /api/invoices/:id/reliquat
func (h *ReliquatHandler) Sync(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	invoice, err := h.reconciler.UpdateReliquatForInvoice(c.Context(), ScopeFromCtx(c), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToInvoiceResponse(invoice))
}
