package main

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"pharmacy-service/internal/handler"
	"pharmacy-service/internal/hub"
	mid "pharmacy-service/internal/middleware"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/notifier"
	"pharmacy-service/internal/reconciler"
	"pharmacy-service/internal/repository"
	"pharmacy-service/internal/tenant"
	"pharmacy-service/pkg/config"
	"pharmacy-service/pkg/database"
	"pharmacy-service/pkg/jwtutil"
	"pharmacy-service/pkg/logger"
	"pharmacy-service/prometheus"
)

func main() {
	// Load configuration
	appConfig, err := config.Load("pharmacy-service")
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting pharmacy-service", appConfig.LogConfig()...)

	// Initialize database
	db, err := database.Init(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	log.Info("Database connection established")

	if err := database.Migrate(
		&model.Tenant{},
		&model.Category{},
		&model.Medicine{},
		&model.User{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Core services
	jwtUtil := jwtutil.NewJWTUtil(&appConfig.JWT)
	resolver := tenant.NewResolver(db)
	eventHub := hub.New(appConfig.Hub.SubscriberBuffer, log)
	changeNotifier := notifier.New(eventHub, log)

	categoryRepo := repository.New[model.Category](db, log, "category", "name")
	medicineRepo := repository.New[model.Medicine](db, log, "medicine", "name", "brand")
	userRepo := repository.New[model.User](db, log, "user", "email", "name")

	medicineReconciler := reconciler.New[model.Medicine, *model.Medicine, reconciler.MedicinePatch](medicineRepo, log)

	// Handlers
	authHandler := handler.NewAuthHandler(userRepo, jwtUtil)
	categoryHandler := handler.NewCategoryHandler(categoryRepo, changeNotifier)
	medicineHandler := handler.NewMedicineHandler(medicineRepo, medicineReconciler, changeNotifier)
	userHandler := handler.NewUserHandler(userRepo, changeNotifier)
	streamHandler := handler.NewStreamHandler(eventHub)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomw.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Every tenant-scoped route resolves the tenant before anything else runs
	resolveTenant := mid.TenantMiddleware(resolver, appConfig.Server.BaseDomain)
	requireAuth := mid.AuthMiddleware(jwtUtil)

	e.POST("/auth/login", authHandler.Login, resolveTenant)

	api := e.Group("/api", resolveTenant, requireAuth)

	categoryAPI := api.Group("/categories")
	categoryAPI.GET("", categoryHandler.List)
	categoryAPI.GET("/:id", categoryHandler.Get)
	categoryAPI.POST("", categoryHandler.Create)
	categoryAPI.PUT("/:id", categoryHandler.Update)
	categoryAPI.DELETE("/:id", categoryHandler.Delete)

	medicineAPI := api.Group("/medicines")
	medicineAPI.GET("", medicineHandler.List)
	medicineAPI.GET("/:id", medicineHandler.Get)
	medicineAPI.POST("", medicineHandler.Create)
	medicineAPI.PUT("/:id", medicineHandler.Update)
	medicineAPI.DELETE("/:id", medicineHandler.Delete)
	medicineAPI.POST("/batch", medicineHandler.BatchUpdate)

	userAPI := api.Group("/users")
	userAPI.GET("", userHandler.List)
	userAPI.GET("/:id", userHandler.Get)
	userAPI.POST("", userHandler.Create)
	userAPI.PUT("/:id", userHandler.Update)
	userAPI.DELETE("/:id", userHandler.Delete)

	api.GET("/stream", streamHandler.Stream)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
