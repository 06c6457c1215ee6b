package main

import (
	"csrd-service/internal/handler"
	"csrd-service/internal/middleware"
	"csrd-service/internal/model"
	"csrd-service/internal/store/postgres"
	"csrd-service/pkg/config"
	"csrd-service/pkg/database"
	"csrd-service/pkg/jwtutil"
	"csrd-service/pkg/logger"
	"csrd-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables.
	// Load fails when no session signing key is configured.
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting compliance reporting service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(db,
		&model.Company{},
		&model.User{},
		&model.GeneralDisclosure{},
		&model.EnvironmentalTopics{},
		&model.SocialTopics{},
		&model.Governance{},
		&model.EuTaxonomy{},
		&model.Assurance{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize session token codec
	if err := jwtutil.Initialize(&cfg.Session); err != nil {
		log.Fatal("Failed to initialize session tokens", zap.Error(err))
	}
	log.Info("Session token codec initialized")

	directory := postgres.New(db)

	authHandler := handler.NewAuthHandler(directory, cfg)
	companyHandler := handler.NewCompanyHandler(directory)
	userHandler := handler.NewUserHandler(directory, cfg)
	disclosureHandler := handler.NewDisclosureHandler(directory)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/session", authHandler.Session)

	// Tenant-scoped routes - all require a valid session
	authGuard := middleware.Auth(directory)

	companies := e.Group("/companies", authGuard)
	companies.GET("/:id", companyHandler.Get)
	companies.PUT("/:id", companyHandler.Update)
	companies.DELETE("/:id", companyHandler.Delete)

	users := e.Group("/users", authGuard)
	users.GET("", userHandler.List)
	users.POST("/invite", userHandler.Invite)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	disclosures := e.Group("/disclosures", authGuard)
	disclosures.POST("/esrs2", disclosureHandler.CreateGeneralDisclosure)
	disclosures.GET("/esrs2", disclosureHandler.ListGeneralDisclosures)
	disclosures.PUT("/esrs2/:id", disclosureHandler.UpdateGeneralDisclosure)
	disclosures.POST("/environmental", disclosureHandler.CreateEnvironmentalTopics)
	disclosures.GET("/environmental", disclosureHandler.ListEnvironmentalTopics)
	disclosures.POST("/social", disclosureHandler.CreateSocialTopics)
	disclosures.GET("/social", disclosureHandler.ListSocialTopics)
	disclosures.POST("/governance", disclosureHandler.CreateGovernance)
	disclosures.GET("/governance", disclosureHandler.ListGovernance)
	disclosures.POST("/taxonomy", disclosureHandler.CreateEuTaxonomy)
	disclosures.GET("/taxonomy", disclosureHandler.ListEuTaxonomy)
	disclosures.POST("/assurance", disclosureHandler.CreateAssurance)
	disclosures.GET("/assurance", disclosureHandler.ListAssurance)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
