package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	_ "github.com/jhoicas/vitrina-stock/docs"
	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/application/usecase"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/cache"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/messaging"
	infrapdf "github.com/jhoicas/vitrina-stock/internal/infrastructure/pdf"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/postgres"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/vitrina-stock/internal/interfaces/http"
	"github.com/jhoicas/vitrina-stock/pkg/config"
	"github.com/jhoicas/vitrina-stock/pkg/logger"
)

// version se sobrescribe en build con -ldflags "-X main.version=..."
var version = "dev"

// @title                       Vitrina Stock API
// @version                     1.0
// @description                 Inventario y ventas atómicas de las vitrinas de WhatsApp.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("version", version).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, cfg.App.Name, version)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
	}

	storeRepo := postgres.NewStoreRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	inventoryRepo := postgres.NewInventoryRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	txRunner := postgres.NewTxRunner(pool, postgres.TxOptions{
		LockTimeout: cfg.Inventory.LockTimeout,
		MaxRetries:  cfg.Inventory.TxMaxRetries,
		BaseBackoff: cfg.Inventory.TxBackoff,
	})

	// Kafka: movimientos confirmados hacia otros servicios (opcional)
	var publisher inventory.MovementPublisher = inventory.NopPublisher{}
	var kafkaPublisher *messaging.MovementPublisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher = messaging.NewMovementPublisher(messaging.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publicación de movimientos activa")
	}

	// Redis: caché de lectura del stock público (opcional)
	var stockCache httpRouter.StockCache
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde; las lecturas irán directo a la base")
		}
		cancel()
		stockCache = cache.NewStockCache(redisClient, cfg.Redis.CacheTTL, log.Component("stock_cache"))
	}

	storeUC := usecase.NewStoreUseCase(storeRepo)
	moduleSvc := usecase.NewModuleService(storeRepo)
	guard := inventory.NewGuard(storeUC, moduleSvc, productRepo)

	accessorUC := inventory.NewAccessorUseCase(guard, inventoryRepo)
	adjustUC := inventory.NewAdjustStockUseCase(txRunner, guard, publisher, log.Component("adjust_stock"))
	cartSaleUC := inventory.NewCartSaleUseCase(txRunner, guard, publisher, inventory.SaleConfig{
		ItemTimeout: cfg.Inventory.ItemTimeout,
	}, log.Component("cart_sale"))
	queryUC := inventory.NewQueryUseCase(guard, storeUC, inventoryRepo, ledgerRepo, infrapdf.NewLowStockReportGenerator())

	metrics := telemetry.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Vitrina Stock API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Accessor:       accessorUC,
		Adjuster:       adjustUC,
		CartSales:      cartSaleUC,
		Queries:        queryUC,
		Stores:         storeUC,
		ModuleService:  moduleSvc,
		Cache:          stockCache,
		Metrics:        metrics,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		JWTSecret:      cfg.JWT.Secret,
		ServiceName:    cfg.App.Name,
		Log:            log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar productor kafka")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar cliente redis")
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("vaciar exportador de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
