package inventory_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/application/inventory"
	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/infrastructure/memory"
)

func setup() (*inventory.StockUseCase, *memory.Store, *entity.StockLocation) {
	store := memory.NewStore()
	geral := store.AddLocation("Geral", "")
	uc := inventory.NewStockUseCase(store, store.Locations(), authz.NewPrivilegeGate(), zerolog.Nop())
	return uc, store, geral
}

func manager() entity.Caller {
	return entity.Caller{UserID: "u1", AccountType: entity.AccountFull, Privileges: authz.DefaultPrivileges(entity.AccountFull)}
}

func TestAddStock_CreaYSuma(t *testing.T) {
	uc, _, geral := setup()
	ctx := context.Background()

	r, err := uc.AddStock(ctx, manager(), geral.ID, 42, dto.AddStockRequest{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, r.Quantity)

	r, err = uc.AddStock(ctx, manager(), geral.ID, 42, dto.AddStockRequest{Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, r.Quantity)

	got, err := uc.GetQuantity(ctx, geral.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
}

func TestAddStock_Rechazos(t *testing.T) {
	uc, _, geral := setup()
	ctx := context.Background()
	caixa := entity.Caller{UserID: "u2", AccountType: entity.AccountCaixa, Privileges: authz.DefaultPrivileges(entity.AccountCaixa)}

	_, err := uc.AddStock(ctx, caixa, geral.ID, 1, dto.AddStockRequest{Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrAuthorizationDenied, "CAIXA no tiene STOCK_MODIFIER")

	_, err = uc.AddStock(ctx, manager(), geral.ID, 1, dto.AddStockRequest{Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.AddStock(ctx, manager(), geral.ID, 1, dto.AddStockRequest{Quantity: 3_000_000_000})
	assert.ErrorIs(t, err, domain.ErrValidation, "la columna quantity es INTEGER")

	_, err = uc.AddStock(ctx, manager(), 999, 1, dto.AddStockRequest{Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}

func TestGetQuantity_SinFilaEsCero(t *testing.T) {
	uc, _, geral := setup()
	got, err := uc.GetQuantity(context.Background(), geral.ID, 77)
	require.NoError(t, err)
	assert.Zero(t, got.Quantity)
}
