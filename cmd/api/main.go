package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "taxdesk/api/swagger" // swagger docs
	"taxdesk/internal/compliance"
	"taxdesk/internal/database"
	"taxdesk/internal/handler"
	"taxdesk/internal/metrics"
	"taxdesk/internal/middleware"
	"taxdesk/internal/repository"
	"taxdesk/internal/service"
	"taxdesk/internal/websocket"
	"taxdesk/pkg/config"
	"taxdesk/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Taxdesk API
// @version         1.0
// @description     PPh and PPN determination, tax record bookkeeping and compliance review.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zl := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	db, err := database.NewConnection(cfg.DB, zl)
	if err != nil {
		zl.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		zl.Warn().Err(err).Msg("failed to auto-migrate models")
	}
	zl.Info().Msg("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	m := metrics.New()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	recordRepo := repository.NewTaxRecordRepository(db)
	typeRepo := repository.NewTransactionTypeRepository(db)

	roleService := service.NewRoleService(roleRepo, txManager)
	userService := service.NewUserService(userRepo, roleRepo, auditRepo, cfg.JWT)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(recordRepo)
	typeService := service.NewTransactionTypeService(typeRepo, auditRepo)

	reporter := compliance.NewReporter(cfg.AI)
	if reporter == nil {
		zl.Info().Msg("compliance reports disabled: AI_PROVIDER not set")
	}
	taxService := service.NewTaxService(recordRepo, typeRepo, auditRepo, txManager,
		service.WithReporter(reporter),
		service.WithPublisher(wsHub),
		service.WithMetrics(m),
	)

	ctx := context.Background()
	if err := roleService.SeedDefaultRolesAndPermissions(ctx); err != nil {
		zl.Warn().Err(err).Msg("failed to seed roles and permissions")
	}
	if n, err := typeService.SeedDefaults(ctx); err != nil {
		zl.Warn().Err(err).Msg("failed to seed transaction types")
	} else if n > 0 {
		zl.Info().Int("created", n).Msg("seeded transaction types")
	}

	auth := middleware.NewAuth(cfg.JWT, cfg.App.IsProduction(), roleService)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, auth)
	roleHandler := handler.NewRoleHandler(roleService, auth)
	taxHandler := handler.NewTaxHandler(taxService, auth)
	typeHandler := handler.NewTransactionTypeHandler(typeService, auth)
	auditHandler := handler.NewAuditHandler(auditService, auth)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, auth)

	// Set up Gin Router
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zl), m.Middleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{middleware.HeaderRequestID}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.Secret(), func(role string) bool {
			return auth.HasPermission(c.Request.Context(), role, service.PermTaxRead)
		})
	})

	// API Routing
	api := router.Group("")
	userHandler.RegisterRoutes(api)
	roleHandler.RegisterRoutes(api)
	taxHandler.RegisterRoutes(api)
	typeHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: router,
	}

	go func() {
		zl.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error().Err(err).Msg("graceful shutdown failed")
	}
	wsHub.Stop()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
