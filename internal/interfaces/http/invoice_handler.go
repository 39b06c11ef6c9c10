package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/application/dto"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// InvoiceHandler gère les requêtes HTTP de facturation (protégé).
type InvoiceHandler struct {
	engine *billing.InvoiceEngine
}

// NewInvoiceHandler construit le handler.
func NewInvoiceHandler(engine *billing.InvoiceEngine) *InvoiceHandler {
	return &InvoiceHandler{engine: engine}
}

// Create crée une facture et décrémente le stock des médicaments.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	input := billing.CreateInvoiceInput{
		PatientID:    in.PatientID,
		Comment:      in.Comment,
		ModePayment:  in.ModePayment,
		CreatedBy:    GetUserID(c),
		OperationIDs: in.OperationIDs,
	}
	for _, line := range in.Lines {
		input.Lines = append(input.Lines, billing.InvoiceLineInput{
			ProductID:     line.ProductID,
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			Discount:      line.Discount,
			TaxSpecifique: line.TaxSpecifique,
		})
	}
	invoice, err := h.engine.CreateInvoice(c.Context(), ScopeFromCtx(c), input)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToInvoiceResponse(invoice))
}

// GetByID charge une facture avec lignes et paiements.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	invoice, err := h.engine.GetInvoice(c.Context(), ScopeFromCtx(c), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToInvoiceResponse(invoice))
}

// List liste les factures du scope avec filtres et pagination.
// GET /api/invoices?status=&patient_id=&start_date=&end_date=&page=&limit=
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	filters := repository.InvoiceListFilters{
		Status:    c.Query("status"),
		PatientID: c.Query("patient_id"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 20),
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "start_date: format attendu YYYY-MM-DD"})
		}
		filters.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "end_date: format attendu YYYY-MM-DD"})
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filters.EndDate = &end
	}
	page, err := h.engine.ListInvoices(c.Context(), ScopeFromCtx(c), filters)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := dto.InvoiceListResponse{
		Invoices: make([]dto.InvoiceResponse, 0, len(page.Invoices)),
		PageResponse: dto.PageResponse{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	}
	for _, inv := range page.Invoices {
		resp.Invoices = append(resp.Invoices, dto.ToInvoiceResponse(inv))
	}
	return c.JSON(resp)
}

// Normalize recalcule les agrégats depuis les lignes stockées.
// POST /api/invoices/:id/normalize
func (h *InvoiceHandler) Normalize(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	// Vérifier la visibilité avant la mutation interne.
	if _, err := h.engine.GetInvoice(c.Context(), ScopeFromCtx(c), id); err != nil {
		return errorResponse(c, err)
	}
	invoice, err := h.engine.NormalizeInvoice(c.Context(), id, GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToInvoiceResponse(invoice))
}

// Cancel annule une facture et restaure le stock.
// POST /api/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	var in dto.CancelInvoiceRequest
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	if _, err := h.engine.GetInvoice(c.Context(), ScopeFromCtx(c), id); err != nil {
		return errorResponse(c, err)
	}
	invoice, err := h.engine.CancelInvoice(c.Context(), id, in.Reason, GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToInvoiceResponse(invoice))
}
