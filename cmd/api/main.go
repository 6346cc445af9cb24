package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/caja-api/internal/application/inventory"
	"github.com/jhoicas/caja-api/internal/application/sales"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/repository"
	infracache "github.com/jhoicas/caja-api/internal/infrastructure/cache"
	"github.com/jhoicas/caja-api/internal/infrastructure/memory"
	"github.com/jhoicas/caja-api/internal/infrastructure/messaging"
	infrapdf "github.com/jhoicas/caja-api/internal/infrastructure/pdf"
	"github.com/jhoicas/caja-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/caja-api/internal/interfaces/http"
	"github.com/jhoicas/caja-api/pkg/config"
	"github.com/jhoicas/caja-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// storage puertos de almacenamiento según STORAGE_DRIVER.
type storage struct {
	runner    sales.SalesTxRunner
	ledger    repository.StockLedger
	locations repository.StockLocationRepository
	sales     repository.SaleRepository
	catalog   repository.CatalogLookup
	close     func()
}

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
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st := openStorage(ctx, cfg, log)
	defer st.close()

	catalog := st.catalog
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde; el caché se degradará al catálogo")
		}
		catalog = infracache.NewCatalogCache(rdb, st.catalog, cfg.Redis.TTL, log.Zerolog())
	}

	var publisher sales.EventPublisher
	if cfg.RabbitMQ.Enabled() {
		conn, ch, err := messaging.SetupConn(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log.Component("rabbitmq"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a RabbitMQ")
		}
		defer func(conn *amqp.Connection, ch *amqp.Channel) {
			_ = ch.Close()
			_ = conn.Close()
		}(conn, ch)
		publisher = messaging.NewSalePublisher(ch, cfg.RabbitMQ.Exchange)
	}

	gate := authz.NewPrivilegeGate()
	registerSaleUC := sales.NewRegisterSaleUseCase(
		st.runner, st.sales, catalog, gate, publisher, log.Zerolog(),
		sales.Config{DefaultLocation: cfg.Sales.DefaultLocation, TxTimeout: cfg.Sales.TxTimeout},
	)
	saleQueriesUC := sales.NewSaleQueryUseCase(
		st.sales, st.locations, st.runner, gate, infrapdf.NewReceiptGenerator(cfg.App.Name), log.Zerolog(),
	)
	stockUC := inventory.NewStockUseCase(st.ledger, st.locations, gate, log.Zerolog())

	deps := httpRouter.RouterDeps{
		RegisterSale: registerSaleUC,
		SaleQueries:  saleQueriesUC,
		Stock:        stockUC,
		JWTSecret:    cfg.JWT.Secret,
		Log:          log.Component("http"),
	}
	if _, err := os.Stat(swaggerFile); err == nil {
		deps.SwaggerPath = swaggerFile
	}
	app := httpRouter.NewApp(cfg.App.Name, deps)

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

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage {
	if cfg.Storage.Driver == config.StorageMemory {
		store := memory.NewStore()
		store.AddLocation(cfg.Sales.DefaultLocation, "Local de ventas por defecto")
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return storage{
			runner:    store,
			ledger:    store,
			locations: store.Locations(),
			sales:     store.Sales(),
			catalog:   store,
			close:     func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if err := postgres.EnsureSchema(ctx, pool, cfg.Sales.DefaultLocation); err != nil {
		log.Fatal().Err(err).Msg("schema de PostgreSQL")
	}
	return storage{
		runner:    postgres.NewTxRunner(pool),
		ledger:    postgres.NewStockLedger(pool),
		locations: postgres.NewStockLocationRepository(pool),
		sales:     postgres.NewSaleRepository(pool),
		catalog:   postgres.NewCatalogRepository(pool),
		close:     pool.Close,
	}
}
