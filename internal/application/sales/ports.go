package sales

import (
	"context"

	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

// SalesTxRunner ejecuta fn dentro de una transacción, pasando repositorios atados a ella.
// Si fn retorna error se hace Rollback y el error se devuelve sin modificar; si no, Commit.
type SalesTxRunner interface {
	RunSale(ctx context.Context, fn func(
		locationRepo repository.StockLocationRepository,
		ledger repository.StockLedger,
		saleRepo repository.SaleRepository,
	) error) error
}

// Authorizer es el Authorization Gate: decide si el llamador tiene una capacidad.
type Authorizer interface {
	Authorize(ctx context.Context, caller entity.Caller, capability string) (bool, error)
}

// EventPublisher publica la venta ya confirmada. Opcional.
type EventPublisher interface {
	PublishSaleRegistered(ctx context.Context, sale *entity.Sale) error
}

// ReceiptGenerator genera el recibo imprimible (PDF).
type ReceiptGenerator interface {
	GenerateReceiptPDF(ctx context.Context, sale *entity.Sale, location *entity.StockLocation) ([]byte, error)
}
