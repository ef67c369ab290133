package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/telemetry"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Accessor       *inventory.AccessorUseCase
	Adjuster       *inventory.AdjustStockUseCase
	CartSales      *inventory.CartSaleUseCase
	Queries        *inventory.QueryUseCase
	Stores         inventory.StoreResolver
	ModuleService  inventory.ModuleChecker
	Cache          StockCache // nil = sin caché
	Metrics        *telemetry.Metrics
	RequestTimeout time.Duration
	JWTSecret      string
	ServiceName    string
	Log            zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestObserver(deps.Log, deps.Metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")

	// Vitrina (público, acotado por slug)
	public := api.Group("/public/stores/:slug")
	publicHandler := NewPublicHandler(deps.CartSales, deps.Accessor, deps.Cache, deps.Metrics, deps.RequestTimeout, deps.Log)
	public.Post("/cart-sales", publicHandler.CartSale)
	public.Get("/inventory/:product_id", publicHandler.GetStock)

	// Panel (Bearer Token + rol)
	invGroup := api.Group("/inventory",
		AuthMiddleware(deps.JWTSecret),
		RequireRole(entity.RoleOwner, entity.RoleStaff),
	)
	inventoryHandler := NewInventoryHandler(deps.Accessor, deps.Adjuster, deps.Queries, deps.Stores, deps.Cache, deps.Metrics, deps.Log)
	invGroup.Get("/", inventoryHandler.List)
	invGroup.Get("/low-stock", inventoryHandler.ListLowStock)
	invGroup.Get("/low-stock/report.pdf", inventoryHandler.LowStockReport)
	invGroup.Get("/:product_id", inventoryHandler.Get)
	invGroup.Get("/:product_id/logs", inventoryHandler.ListLogs)
	invGroup.Post("/:product_id/adjust",
		RequireModule(entity.ModuleStock, deps.ModuleService, deps.Log),
		inventoryHandler.Adjust,
	)
}
