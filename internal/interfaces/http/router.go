package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/auth"
	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/application/registry"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// RouterDeps dépendances du router.
type RouterDeps struct {
	AuthUC     *auth.AuthUseCase
	RegistryUC *registry.RegistryUseCase
	Engine     *billing.InvoiceEngine
	Ledger     *billing.PaymentLedger
	Reconciler *billing.ReliquatReconciler
	Operations *billing.OperationService
	AuditLogs  repository.AuditLogRepository
	JWTSecret  string
}

// Router enregistre les routes de l'API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (public)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Routes protégées (Bearer Token requis)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	registryHandler := NewRegistryHandler(deps.RegistryUC)

	// Clinics (super_admin)
	clinics := protected.Group("/clinics", RequireRole(entity.RoleSuperAdmin))
	clinics.Post("/", registryHandler.CreateClinic)
	clinics.Get("/", registryHandler.ListClinics)
	clinics.Get("/:id", registryHandler.GetClinic)

	// Patients (protégé)
	patients := protected.Group("/patients")
	patients.Post("/", registryHandler.CreatePatient)
	patients.Get("/", registryHandler.ListPatients)
	patients.Get("/:id", registryHandler.GetPatient)

	// Products (protégé; création réservée aux admins)
	products := protected.Group("/products")
	products.Post("/", RequireRole(entity.RoleSuperAdmin, entity.RoleAdmin), registryHandler.CreateProduct)
	products.Get("/", registryHandler.ListProducts)
	products.Get("/:id", registryHandler.GetProduct)

	// Invoices (protégé)
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Engine)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Post("/:id/normalize", RequireRole(entity.RoleSuperAdmin, entity.RoleAdmin), invoiceHandler.Normalize)
	invoices.Post("/:id/cancel", RequireRole(entity.RoleSuperAdmin, entity.RoleAdmin), invoiceHandler.Cancel)

	// Payments (protégé)
	paymentHandler := NewPaymentHandler(deps.Ledger)
	invoices.Post("/:id/payments", paymentHandler.Create)
	invoices.Get("/:id/payments", paymentHandler.List)
	protected.Delete("/payments/:id", RequireRole(entity.RoleSuperAdmin, entity.RoleAdmin), paymentHandler.Delete)

	// Reliquats (protégé)
	reliquatHandler := NewReliquatHandler(deps.Reconciler)
	protected.Get("/reliquats", reliquatHandler.List)
	invoices.Post("/:id/reliquat", reliquatHandler.Sync)

	// Operations (protégé)
	operations := protected.Group("/operations")
	operationHandler := NewOperationHandler(deps.Operations)
	operations.Post("/", operationHandler.Create)
	operations.Get("/", operationHandler.List)
	operations.Get("/:id", operationHandler.GetByID)

	// Audit (admin)
	auditHandler := NewAuditHandler(deps.AuditLogs)
	protected.Get("/audit-logs", RequireRole(entity.RoleSuperAdmin, entity.RoleAdmin), auditHandler.List)
}
