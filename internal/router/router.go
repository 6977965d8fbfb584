package router

import (
	"time"

	"stationery/internal/config"
	"stationery/internal/handler"
	"stationery/internal/infra"
	"stationery/internal/middleware"
	"stationery/internal/repository"
	"stationery/internal/service"
	"stationery/internal/worker"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Services is the service layer shared by the HTTP router and the background
// workers.
type Services struct {
	Products     service.ProductService
	Vendors      service.VendorService
	Students     service.StudentService
	StudentSync  service.StudentSyncService
	StockEntries service.StockEntryService
	Transactions service.TransactionService
	Dispatcher   *worker.Dispatcher
}

// NewServices wires repositories and services.
// Dependency graph: Service ← Repository ← DB/Redis.
// rdb and source may be nil: jobs, the sync lock and the student import are
// then unavailable.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, source service.StudentSource) *Services {
	productRepo := repository.NewProductRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	entryRepo := repository.NewStockEntryRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	var (
		dispatcher *worker.Dispatcher
		locker     *redislock.Client
	)
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)
		locker = infra.NewLocker(rdb)
	}

	return &Services{
		Products:     service.NewProductService(productRepo, movementRepo, cfg.LowStockThreshold),
		Vendors:      service.NewVendorService(vendorRepo),
		Students:     service.NewStudentService(studentRepo),
		StudentSync:  service.NewStudentSyncService(source, studentRepo, locker, dispatcher),
		StockEntries: service.NewStockEntryService(entryRepo, productRepo, vendorRepo, movementRepo),
		Transactions: service.NewTransactionService(transactionRepo, productRepo, studentRepo, movementRepo, dispatcher),
		Dispatcher:   dispatcher,
	}
}

// New returns a configured Gin engine serving svc.
// breaker is the student source circuit breaker, reported by /health; may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svc *Services, breaker *infra.CircuitBreaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	productsH := handler.NewProductsHandler(svc.Products)
	vendorsH := handler.NewVendorsHandler(svc.Vendors)
	studentsH := handler.NewStudentsHandler(svc.Students, svc.StudentSync)
	entriesH := handler.NewStockEntriesHandler(svc.StockEntries)
	transactionsH := handler.NewTransactionsHandler(svc.Transactions)

	// Public
	r.GET("/health", handler.Health(db, rdb, breaker))

	api := r.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(middleware.JWTAuth(cfg.JWTSecret))
	}
	{
		tx := api.Group("/transactions")
		{
			tx.POST("", transactionsH.Create)
			tx.GET("", transactionsH.List)
			tx.GET("/student/:studentId", transactionsH.ListByStudent)
			tx.GET("/:id", transactionsH.GetByID)
			tx.PUT("/:id", transactionsH.Update)
			tx.DELETE("/:id", transactionsH.Delete)
		}

		entries := api.Group("/stock-entries")
		{
			entries.POST("", entriesH.Create)
			entries.GET("", entriesH.List)
			entries.GET("/:id", entriesH.GetByID)
			entries.PUT("/:id", entriesH.Update)
			entries.DELETE("/:id", entriesH.Delete)
		}

		prods := api.Group("/products")
		{
			prods.POST("", productsH.Create)
			prods.GET("", productsH.List)
			prods.GET("/alerts", productsH.Alerts)
			prods.GET("/:id", productsH.GetByID)
			prods.PUT("/:id", productsH.Update)
			prods.GET("/:id/movements", productsH.Movements)
		}

		vendors := api.Group("/vendors")
		{
			vendors.POST("", vendorsH.Create)
			vendors.GET("", vendorsH.List)
			vendors.GET("/:id", vendorsH.GetByID)
			vendors.PUT("/:id", vendorsH.Update)
			vendors.DELETE("/:id", vendorsH.Delete)
		}

		students := api.Group("/students")
		{
			students.POST("", studentsH.Create)
			students.GET("", studentsH.List)
			students.GET("/sql", middleware.RequireRole("admin"), studentsH.PreviewSQL)
			students.POST("/sync",
				middleware.RequireRole("admin"),
				middleware.RateLimiter(6, time.Minute),
				studentsH.Sync,
			)
			students.GET("/:id", studentsH.GetByID)
		}
	}

	// Swagger UI, outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
