package http

import (
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/jhoicas/caja-api/internal/application/inventory"
	"github.com/jhoicas/caja-api/internal/application/sales"
	"github.com/jhoicas/caja-api/internal/domain/authz"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RegisterSale *sales.RegisterSaleUseCase
	SaleQueries  *sales.SaleQueryUseCase
	Stock        *inventory.StockUseCase
	JWTSecret    string
	Log          zerolog.Logger
	SwaggerPath  string // vacío = sin /docs
}

// NewApp crea la app Fiber con recover, log de peticiones y todas las rutas.
func NewApp(appName string, deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(RequestLogger(deps.Log))
	if deps.SwaggerPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: deps.SwaggerPath,
			Path:     "docs",
			Title:    appName + " API",
		}))
	}
	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	saleHandler := NewSaleHandler(deps.RegisterSale, deps.SaleQueries)
	salesGroup := protected.Group("/sales")
	salesGroup.Post("/", RequirePrivilege(authz.CapRegisterSale), saleHandler.Register)
	salesGroup.Get("/:id/receipt.pdf", saleHandler.ReceiptPDF)
	salesGroup.Get("/:id", saleHandler.GetByID)
	salesGroup.Delete("/:id", RequirePrivilege(authz.CapAdmin), saleHandler.Delete)

	protected.Get("/registers/:register_id/sales", saleHandler.ListByRegister)

	stockHandler := NewStockHandler(deps.Stock)
	stocks := protected.Group("/stocks/:stock_id/products/:product_id")
	stocks.Get("/", stockHandler.Get)
	stocks.Post("/", RequirePrivilege(authz.CapModifyStock), stockHandler.Add)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"code": "HTTP_ERROR", "message": err.Error()})
}
