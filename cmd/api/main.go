package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tidianefall/cliniq-api/internal/application/auth"
	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/application/registry"
	"github.com/tidianefall/cliniq-api/internal/infrastructure/postgres"
	httpRouter "github.com/tidianefall/cliniq-api/internal/interfaces/http"
	"github.com/tidianefall/cliniq-api/pkg/config"
	"github.com/tidianefall/cliniq-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("charger la configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("démarrage de l'application")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connexion à PostgreSQL")
	}
	defer pool.Close()

	clinicRepo := postgres.NewClinicRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	patientRepo := postgres.NewPatientRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	operationRepo := postgres.NewOperationRepository(pool)
	counterRepo := postgres.NewCounterRepository(pool)
	auditRepo := postgres.NewAuditLogRepository(pool)

	txRunner := postgres.NewTxRunner(pool)
	retryer := postgres.NewSchemaCacheRetryer(pool, time.Duration(cfg.DB.RetryWaitMS)*time.Millisecond, log)

	numbers := billing.NewSequenceNumberGenerator(counterRepo, invoiceRepo, operationRepo)

	engine := billing.NewInvoiceEngine(
		txRunner, retryer,
		patientRepo, productRepo, invoiceRepo, paymentRepo, operationRepo, clinicRepo,
		numbers, auditRepo, log,
	)
	ledger := billing.NewPaymentLedger(txRunner, retryer, auditRepo, log)
	reconciler := billing.NewReliquatReconciler(txRunner, retryer, invoiceRepo, log)
	operationSvc := billing.NewOperationService(txRunner, retryer, patientRepo, operationRepo, numbers, log)
	registryUC := registry.NewRegistryUseCase(retryer, clinicRepo, patientRepo, productRepo)

	authUC := auth.NewAuthUseCase(userRepo, clinicRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:     authUC,
		RegistryUC: registryUC,
		Engine:     engine,
		Ledger:     ledger,
		Reconciler: reconciler,
		Operations: operationSvc,
		AuditLogs:  auditRepo,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("serveur HTTP terminé")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("signal d'arrêt reçu, fermeture du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("arrêt du serveur")
	}

	log.Info().Msg("application arrêtée")
}
