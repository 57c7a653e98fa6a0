package main

import (
	"os"

	"erp-backend/internal/database"
	"erp-backend/internal/handler"
	"erp-backend/internal/repository"
	"erp-backend/internal/service"
	"erp-backend/internal/websocket"
	"erp-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           ERP Inventory API
// @version         1.0
// @description     Inventory ledger and fulfillment core: catalog, stock movements, purchasing and stock audits.
// @host            localhost:8080
// @BasePath        /
func main() {
	// configs/.env is optional; real env vars win either way
	_ = godotenv.Load("configs/.env")

	log := logger.New(logger.Config{
		Env:   os.Getenv("APP_ENV"),
		Level: os.Getenv("LOG_LEVEL"),
	})

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "erp")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Str("host", dbHost).Str("db", dbName).Msg("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	auditRepo := repository.NewStockAuditRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	stockService := service.NewStockService(productRepo, movementRepo, activityRepo, txManager, wsHub)
	productService := service.NewProductService(productRepo, categoryRepo, movementRepo, activityRepo, stockService, txManager)
	supplierService := service.NewSupplierService(supplierRepo)
	poService := service.NewPurchaseOrderService(poRepo, supplierRepo, productRepo, activityRepo, stockService, txManager, wsHub)
	auditService := service.NewStockAuditService(auditRepo, productRepo, activityRepo, stockService, txManager, wsHub)
	activityService := service.NewActivityService(activityRepo)

	inventoryHandler := handler.NewInventoryHandler(productService, stockService)
	supplierHandler := handler.NewSupplierHandler(supplierService)
	purchaseHandler := handler.NewPurchaseHandler(poService)
	auditHandler := handler.NewAuditHandler(auditService)
	activityHandler := handler.NewActivityHandler(activityService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-User-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for stock update broadcasts
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	// API Routing
	inventoryHandler.RegisterRoutes(router.Group(""))
	supplierHandler.RegisterRoutes(router.Group(""))
	purchaseHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	activityHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")
	log.Info().Str("port", port).Msg("server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
