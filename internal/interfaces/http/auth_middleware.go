package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/dto"
	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/pkg/jwt"
)

// Clés Locals pour UserID, ClinicID et Role dans Fiber.
const (
	LocalUserID   = "user_id"
	LocalClinicID = "clinic_id"
	LocalRole     = "role"
)

// AuthMiddleware valide le Bearer Token JWT et place UserID, ClinicID et Role
// dans c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "en-tête Authorization requis"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "format: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vide"})
		}
		userID, clinicID, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token invalide ou expiré"})
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalClinicID, clinicID)
		c.Locals(LocalRole, role)
		return c.Next()
	}
}

// RequireRole autorise seulement les rôles listés. À placer après
// AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "token sans rôle"})
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "accès refusé pour ce rôle"})
		}
		return c.Next()
	}
}

// GetUserID retourne le UserID du contexte (après le middleware d'auth).
func GetUserID(c *fiber.Ctx) string {
	v := c.Locals(LocalUserID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetClinicID retourne le ClinicID du contexte (après le middleware d'auth).
func GetClinicID(c *fiber.Ctx) string {
	v := c.Locals(LocalClinicID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetRole retourne le rôle du contexte (après le middleware d'auth).
func GetRole(c *fiber.Ctx) string {
	v := c.Locals(LocalRole)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ScopeFromCtx dérive le scope tenant de l'appelant: un super_admin obtient
// un scope privilégié sans filtre clinique, tout autre rôle est restreint à
// sa clinique. La validation (clinique absente sur un rôle non privilégié)
// est faite par les cas d'usage.
func ScopeFromCtx(c *fiber.Ctx) domain.TenantScope {
	if GetRole(c) == entity.RoleSuperAdmin {
		return domain.PrivilegedScope()
	}
	return domain.ClinicScope(GetClinicID(c))
}
