package main

import (
	"fmt"
	"os"
	"strings"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/auth"
	"retail-backend/internal/config"
	"retail-backend/internal/database"
	"retail-backend/internal/inventory"
	"retail-backend/internal/joinrequest"
	"retail-backend/internal/logging"
	"retail-backend/internal/models"
	"retail-backend/internal/sales"
	"retail-backend/internal/staff"
	"retail-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	checker := access.NewChecker(db)
	recorder := audit.NewRecorder(logger)

	authSvc := auth.NewService(db, cfg.JWTSecret, cfg.JWTTTL, logger)
	storeSvc := store.NewService(db, checker, recorder, logger)
	inventorySvc := inventory.NewService(db, checker, recorder, logger, cfg.PageSizeMax)
	requestSvc := joinrequest.NewService(db, checker, recorder, logger)
	staffSvc := staff.NewService(db, checker, recorder, logger)
	salesSvc := sales.NewService(db, checker, recorder, logger, cfg.PageSizeMax)
	auditSvc := audit.NewService(db, checker)

	app := fiber.New(fiber.Config{
		ErrorHandler: apperror.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(logging.RequestID())
	app.Use(logging.Middleware(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + logging.RequestIDHeader,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(authSvc))
	api.Post("/auth/login", auth.LoginHandler(authSvc))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	ownerOnly := auth.RequireRole(models.RoleOwner)
	staffOnly := auth.RequireRole(models.RoleStaff)

	protected.Get("/auth/me", auth.MeHandler(authSvc))

	// Stores
	protected.Post("/stores", ownerOnly, store.CreateStoreHandler(storeSvc))
	protected.Get("/stores", staffOnly, store.ListStoresHandler(storeSvc))
	protected.Get("/stores/my-stores", ownerOnly, store.MyStoresHandler(storeSvc))
	protected.Get("/stores/:id", store.GetStoreHandler(storeSvc))

	// Inventory
	protected.Post("/inventory/import", ownerOnly, inventory.ImportHandler(inventorySvc))
	protected.Post("/inventory", ownerOnly, inventory.CreateItemHandler(inventorySvc))
	protected.Get("/inventory", inventory.ListItemsHandler(inventorySvc))
	protected.Get("/inventory/:id", inventory.GetItemHandler(inventorySvc))
	protected.Put("/inventory/:id", ownerOnly, inventory.UpdateItemHandler(inventorySvc))
	protected.Delete("/inventory/:id", ownerOnly, inventory.DeleteItemHandler(inventorySvc))

	// Join requests
	protected.Post("/join-requests", staffOnly, joinrequest.SendRequestHandler(requestSvc))
	protected.Get("/join-requests/my-requests", staffOnly, joinrequest.ListMineHandler(requestSvc))
	protected.Get("/join-requests/pending", ownerOnly, joinrequest.ListPendingHandler(requestSvc))
	protected.Put("/join-requests/:id/status", ownerOnly, joinrequest.SetStatusHandler(requestSvc))

	// Staff roster
	protected.Post("/staff/join", staffOnly, staff.JoinHandler(staffSvc))
	protected.Put("/staff/fire/:staffId", ownerOnly, staff.FireHandler(staffSvc))
	protected.Get("/staff", ownerOnly, staff.ListStaffHandler(staffSvc))

	// Sales
	protected.Post("/sales", sales.CreateSaleHandler(salesSvc))
	protected.Get("/sales", sales.ListSalesHandler(salesSvc))
	protected.Get("/sales/:id", sales.GetSaleHandler(salesSvc))

	// Audit logs
	protected.Get("/audit-logs", ownerOnly, audit.ListAuditLogsHandler(auditSvc))

	logger.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
