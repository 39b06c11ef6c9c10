package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/application/dto"
)

// OperationHandler gère les requêtes HTTP des actes cliniques (protégé).
type OperationHandler struct {
	svc *billing.OperationService
}

// NewOperationHandler construit le handler.
func NewOperationHandler(svc *billing.OperationService) *OperationHandler {
	return &OperationHandler{svc: svc}
}

// Create crée un acte et lui attribue une référence journalière.
// POST /api/operations
func (h *OperationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOperationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	input := billing.CreateOperationInput{
		PatientID: in.PatientID,
		CreatedBy: GetUserID(c),
	}
	for _, line := range in.Lines {
		input.Lines = append(input.Lines, billing.OperationLineInput{
			ProductID: line.ProductID,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
		})
	}
	op, err := h.svc.CreateOperation(c.Context(), ScopeFromCtx(c), input)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToOperationResponse(op))
}

// GetByID charge un acte et ses lignes.
// GET /api/operations/:id
func (h *OperationHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requis"})
	}
	op, err := h.svc.GetOperation(c.Context(), ScopeFromCtx(c), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToOperationResponse(op))
}

// List liste les actes du scope.
// GET /api/operations?limit=&offset=
func (h *OperationHandler) List(c *fiber.Ctx) error {
	ops, err := h.svc.ListOperations(c.Context(), ScopeFromCtx(c),
		c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]dto.OperationResponse, 0, len(ops))
	for _, op := range ops {
		resp = append(resp, dto.ToOperationResponse(op))
	}
	return c.JSON(resp)
}
