package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/gamme-qc/internal/config"
	"github.com/localnerve/gamme-qc/internal/database"
	"github.com/localnerve/gamme-qc/internal/handlers"
	"github.com/localnerve/gamme-qc/internal/middleware"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/types"

	_ "github.com/localnerve/gamme-qc/docs/api" // Swagger docs
)

// @title Gamme QC API
// @version 1.0.0
// @description Quality-control mission and gamme record-keeping service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/gamme-qc
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Media storage
	store, err := storage.NewLocalStore(cfg.MediaRoot, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	// Authorizer initializes lazily on the first authenticated request
	middleware.SetConfig(cfg)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("gammeqc")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Stored media (photos, report PDFs)
	app.Static("/media", cfg.MediaRoot)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	missionHandler := &handlers.MissionHandler{DB: db, Store: store}
	gammeHandler := &handlers.GammeHandler{DB: db, Store: store}
	operationHandler := &handlers.OperationHandler{DB: db, Store: store}
	photoHandler := &handlers.PhotoHandler{DB: db, Store: store}
	catalogHandler := &handlers.CatalogHandler{DB: db}
	userHandler := &handlers.UserHandler{DB: db}
	healthHandler := &handlers.HealthHandler{DB: db, Cfg: cfg}

	// Health (unauthenticated, used by orchestration)
	api.Get("/health", healthHandler.GetHealth)

	// Mission routes
	api.Get("/missions", middleware.AuthStaff(), missionHandler.ListMissions)
	api.Get("/missions/check-code", middleware.AuthStaff(), missionHandler.CheckCode)
	api.Post("/missions", middleware.AuthOperator(), missionHandler.CreateMission)
	api.Get("/missions/:id", middleware.AuthStaff(), missionHandler.GetMission)
	api.Post("/missions/:id/update", middleware.AuthOperator(), missionHandler.UpdateMission)
	api.Delete("/missions/:id", middleware.AuthAdmin(), missionHandler.DeleteMission)
	api.Get("/missions/:id/report", middleware.AuthStaff(), missionHandler.GetReport)
	api.Post("/missions/:id/pdf", middleware.AuthStaff(), missionHandler.SavePDF)

	// Gamme routes
	api.Get("/gammes", middleware.AuthStaff(), gammeHandler.ListGammes)
	api.Get("/gammes/:id", middleware.AuthStaff(), gammeHandler.GetGamme)
	api.Post("/gammes", middleware.AuthOperator(), gammeHandler.CreateGamme)
	api.Delete("/gammes/:id", middleware.AuthAdmin(), gammeHandler.DeleteGamme)
	api.Post("/gammes/:id/validate", middleware.AuthStaff(), gammeHandler.ValidateGamme)
	api.Post("/gammes/:id/photos-defaut", middleware.AuthStaff(), gammeHandler.AddDefectPhotos)
	api.Delete("/photos-defaut/:id", middleware.AuthStaff(), photoHandler.DeleteDefectPhoto)

	// Operation routes
	api.Get("/operations", middleware.AuthStaff(), operationHandler.ListOperations)
	api.Get("/operations/:id", middleware.AuthStaff(), operationHandler.GetOperation)
	api.Post("/operations", middleware.AuthOperator(), operationHandler.CreateOperation)
	api.Put("/operations/:id", middleware.AuthOperator(), operationHandler.UpdateOperation)
	api.Delete("/operations/:id", middleware.AuthOperator(), operationHandler.DeleteOperation)
	api.Post("/operations/:id/photos", middleware.AuthStaff(), operationHandler.AddPhoto)
	api.Delete("/photos-operation/:id", middleware.AuthStaff(), photoHandler.DeleteOperationPhoto)

	// Catalog routes
	api.Get("/epis", middleware.AuthStaff(), catalogHandler.ListEpis)
	api.Post("/epis", middleware.AuthAdmin(), catalogHandler.CreateEpi)
	api.Put("/epis/:id", middleware.AuthAdmin(), catalogHandler.UpdateEpi)
	api.Delete("/epis/:id", middleware.AuthAdmin(), catalogHandler.DeleteEpi)
	api.Get("/moyens", middleware.AuthStaff(), catalogHandler.ListMoyens)
	api.Post("/moyens", middleware.AuthAdmin(), catalogHandler.CreateMoyen)
	api.Put("/moyens/:id", middleware.AuthAdmin(), catalogHandler.UpdateMoyen)
	api.Delete("/moyens/:id", middleware.AuthAdmin(), catalogHandler.DeleteMoyen)

	// User administration routes
	api.Get("/users", middleware.AuthAdmin(), userHandler.ListUsers)
	api.Post("/users", middleware.AuthAdmin(), userHandler.CreateUser)
	api.Put("/users/:id", middleware.AuthAdmin(), userHandler.UpdateUser)
	api.Delete("/users/:id", middleware.AuthAdmin(), userHandler.DeleteUser)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	versionError := false
	if code == fiber.StatusConflict || (len(message) >= 9 && message[:9] == "E_VERSION") {
		versionError = true
		errorType = "version"
		code = fiber.StatusConflict
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       code,
		"message":      message,
		"ok":           false,
		"versionError": versionError,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         errorType,
	})
}
