package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/dto"
	"github.com/tidianefall/cliniq-api/internal/application/registry"
)

// RegistryHandler gère les référentiels: cliniques, patients, produits.
type RegistryHandler struct {
	uc *registry.RegistryUseCase
}

// NewRegistryHandler construit le handler.
func NewRegistryHandler(uc *registry.RegistryUseCase) *RegistryHandler {
	return &RegistryHandler{uc: uc}
}

// CreateClinic crée une clinique (super_admin).
// POST /api/clinics
func (h *RegistryHandler) CreateClinic(c *fiber.Ctx) error {
	var in dto.CreateClinicRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	clinic, err := h.uc.CreateClinic(c.Context(), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToClinicResponse(clinic))
}

// GetClinic charge une clinique.
// GET /api/clinics/:id
func (h *RegistryHandler) GetClinic(c *fiber.Ctx) error {
	clinic, err := h.uc.GetClinic(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToClinicResponse(clinic))
}

// ListClinics liste toutes les cliniques (super_admin).
// GET /api/clinics
func (h *RegistryHandler) ListClinics(c *fiber.Ctx) error {
	clinics, err := h.uc.ListClinics(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]dto.ClinicResponse, 0, len(clinics))
	for _, cl := range clinics {
		resp = append(resp, dto.ToClinicResponse(cl))
	}
	return c.JSON(resp)
}

// CreatePatient crée un patient dans la clinique de l'appelant.
// POST /api/patients
func (h *RegistryHandler) CreatePatient(c *fiber.Ctx) error {
	var in dto.CreatePatientRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	patient, err := h.uc.CreatePatient(c.Context(), ScopeFromCtx(c), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToPatientResponse(patient))
}

// GetPatient charge un patient du scope.
// GET /api/patients/:id
func (h *RegistryHandler) GetPatient(c *fiber.Ctx) error {
	patient, err := h.uc.GetPatient(c.Context(), ScopeFromCtx(c), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToPatientResponse(patient))
}

// ListPatients liste les patients du scope.
// GET /api/patients?limit=&offset=
func (h *RegistryHandler) ListPatients(c *fiber.Ctx) error {
	patients, err := h.uc.ListPatients(c.Context(), ScopeFromCtx(c),
		c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]dto.PatientResponse, 0, len(patients))
	for _, p := range patients {
		resp = append(resp, dto.ToPatientResponse(p))
	}
	return c.JSON(resp)
}

// CreateProduct crée un produit dans la clinique de l'appelant.
// POST /api/products
func (h *RegistryHandler) CreateProduct(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	product, err := h.uc.CreateProduct(c.Context(), ScopeFromCtx(c), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToProductResponse(product))
}

// GetProduct charge un produit du scope.
// GET /api/products/:id
func (h *RegistryHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.uc.GetProduct(c.Context(), ScopeFromCtx(c), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.ToProductResponse(product))
}

// ListProducts liste les produits du scope.
// GET /api/products?limit=&offset=
func (h *RegistryHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.uc.ListProducts(c.Context(), ScopeFromCtx(c),
		c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, dto.ToProductResponse(p))
	}
	return c.JSON(resp)
}
