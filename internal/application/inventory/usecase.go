package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

// StockUseCase operaciones de abastecimiento sobre el libro de inventario.
// Las ventas descuentan con el motor de ventas; aquí solo se suma stock y se consulta.
type StockUseCase struct {
	ledger       repository.StockLedger
	locationRepo repository.StockLocationRepository
	authorizer   Authorizer
	log          zerolog.Logger
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(
	ledger repository.StockLedger,
	locationRepo repository.StockLocationRepository,
	authorizer Authorizer,
	log zerolog.Logger,
) *StockUseCase {
	return &StockUseCase{
		ledger:       ledger,
		locationRepo: locationRepo,
		authorizer:   authorizer,
		log:          log.With().Str("component", "stock").Logger(),
	}
}

// AddStock suma quantity unidades al producto en el local. Crea la fila si no existe.
// Requiere STOCK_MODIFIER.
func (uc *StockUseCase) AddStock(ctx context.Context, caller entity.Caller, locationID, productID int64, in dto.AddStockRequest) (*dto.StockEntryResponse, error) {
	ok, err := uc.authorizer.Authorize(ctx, caller, authz.CapModifyStock)
	if err != nil {
		return nil, domain.Persistence("autorizar", err)
	}
	if !ok {
		return nil, domain.ErrAuthorizationDenied
	}
	if productID <= 0 {
		return nil, domain.Invalid("product_id", "requerido")
	}
	if in.Quantity <= 0 {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	if in.Quantity > math.MaxInt32 {
		return nil, domain.Invalid("quantity", fmt.Sprintf("máximo %d", math.MaxInt32))
	}
	if err := uc.requireLocation(ctx, locationID); err != nil {
		return nil, err
	}

	if err := uc.ledger.Increment(ctx, locationID, productID, in.Quantity); err != nil {
		return nil, domain.Persistence("sumar stock", err)
	}
	qty, err := uc.ledger.Quantity(ctx, locationID, productID)
	if err != nil {
		return nil, domain.Persistence("consultar stock", err)
	}
	uc.log.Info().
		Int64("location_id", locationID).
		Int64("product_id", productID).
		Int("added", in.Quantity).
		Int("quantity", qty).
		Str("user_id", caller.UserID).
		Msg("stock agregado")
	return &dto.StockEntryResponse{LocationID: locationID, ProductID: productID, Quantity: qty}, nil
}

// GetQuantity devuelve la cantidad disponible (0 si nunca se abasteció).
func (uc *StockUseCase) GetQuantity(ctx context.Context, locationID, productID int64) (*dto.StockEntryResponse, error) {
	if err := uc.requireLocation(ctx, locationID); err != nil {
		return nil, err
	}
	qty, err := uc.ledger.Quantity(ctx, locationID, productID)
	if err != nil {
		return nil, domain.Persistence("consultar stock", err)
	}
	return &dto.StockEntryResponse{LocationID: locationID, ProductID: productID, Quantity: qty}, nil
}

func (uc *StockUseCase) requireLocation(ctx context.Context, locationID int64) error {
	loc, err := uc.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return domain.Persistence("obtener local", err)
	}
	if loc == nil {
		return domain.ErrLocationNotFound
	}
	return nil
}
