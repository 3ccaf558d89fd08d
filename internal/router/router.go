package router

import (
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/cache"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/config"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/handler"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/middleware"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/repository"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	levelRepo := repository.NewStockLevelRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	tillRepo := repository.NewTillRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	levelCache := cache.NewRedisStockLevels(rdb, time.Duration(cfg.StockCacheTTLSeconds)*time.Second)
	taxRate := decimal.NewFromFloat(cfg.TaxRatePct)

	stockSvc := service.NewStockService(levelRepo, movementRepo, productRepo, locationRepo, levelCache)
	saleSvc := service.NewSaleService(saleRepo, stockSvc, productRepo, locationRepo, levelRepo, levelCache, taxRate)
	tillSvc := service.NewTillService(tillRepo, saleRepo, locationRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	stockH := handler.NewStockHandler(stockSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	tillH := handler.NewTillHandler(tillSvc)
	catalogH := handler.NewCatalogHandler(productRepo, locationRepo)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		stock := v1.Group("/stock")
		{
			stock.POST("/adjust", stockH.Adjust)
			stock.POST("/count", stockH.ManualAdjustment)
			stock.POST("/transfer", stockH.Transfer)
			stock.POST("/reserve", stockH.Reserve)
			stock.POST("/release", stockH.Release)
			stock.GET("/levels/:product_id/:location_id", stockH.GetLevel)
			stock.GET("/movements", stockH.ListMovements)
		}

		v1.POST("/sales", salesH.CreateSale)
		v1.GET("/sales/:id", salesH.GetSale)
		v1.DELETE("/sales/:id", salesH.VoidSale)
		v1.POST("/sales/:id/refunds", salesH.RefundLines)

		till := v1.Group("/till")
		{
			till.POST("/open", tillH.Open)
			till.POST("/close", tillH.Close)
			till.GET("/:location_id/:date", tillH.Get)
		}

		v1.GET("/products", catalogH.ListProducts)
		v1.GET("/products/:id", catalogH.GetProduct)
		v1.GET("/locations", catalogH.ListLocations)
	}

	return r
}
