package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/auth"
	"github.com/tidianefall/cliniq-api/internal/application/dto"
)

// AuthHandler gère l'inscription et le login.
type AuthHandler struct {
	uc *auth.AuthUseCase
}

// NewAuthHandler construit le handler.
func NewAuthHandler(uc *auth.AuthUseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Register crée un utilisateur.
// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	user, err := h.uc.RegisterUser(c.Context(), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login vérifie les identifiants et retourne un JWT.
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps invalide"})
	}
	resp, err := h.uc.Login(c.Context(), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}
