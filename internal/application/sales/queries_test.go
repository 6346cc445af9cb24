package sales_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/application/sales"
	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/entity"
)

type stubReceipts struct {
	location *entity.StockLocation
}

func (g *stubReceipts) GenerateReceiptPDF(_ context.Context, _ *entity.Sale, location *entity.StockLocation) ([]byte, error) {
	g.location = location
	return []byte("%PDF-1.3"), nil
}

func newQueries(f *fixture, receipts sales.ReceiptGenerator) *sales.SaleQueryUseCase {
	return sales.NewSaleQueryUseCase(f.store.Sales(), f.store.Locations(), f.store, authz.NewPrivilegeGate(), receipts, zerolog.Nop())
}

func TestGetSale_VisibilidadPorCaja(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, 5)
	_, err := f.uc.RegisterSale(f.ctx, f.cashier, request("S1", line(1, 1, "1.00")))
	require.NoError(t, err)
	q := newQueries(f, nil)

	r, err := q.GetSale(f.ctx, f.cashier, "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", r.ID)
	assert.False(t, r.Replayed)

	_, err = q.GetSale(f.ctx, caller("u-otra", entity.AccountCaixa, "2"), "S1")
	assert.ErrorIs(t, err, domain.ErrAuthorizationDenied, "otra caja no ve la venta")

	_, err = q.GetSale(f.ctx, caller("u-owner", entity.AccountOwner, ""), "S1")
	assert.NoError(t, err, "el dueño ve todo")

	_, err = q.GetSale(f.ctx, f.cashier, "NO-EXISTE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByRegister_CajaSoloLaSuya(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, 5)
	for _, id := range []string{"A", "B"} {
		_, err := f.uc.RegisterSale(f.ctx, f.cashier, request(id, line(1, 1, "1.00")))
		require.NoError(t, err)
	}
	q := newQueries(f, nil)

	list, err := q.ListByRegister(f.ctx, f.cashier, "1", dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	_, err = q.ListByRegister(f.ctx, f.cashier, "2", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	admin := caller("u-admin", entity.AccountFull, "")
	list, err = q.ListByRegister(f.ctx, admin, "1", dto.PageRequest{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total, "se respeta el límite")

	_, err = q.ListByRegister(f.ctx, admin, " ", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteSale_BorraItemsSinReponerStock(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, 5)
	_, err := f.uc.RegisterSale(f.ctx, f.cashier, request("S1", line(1, 2, "1.00")))
	require.NoError(t, err)
	q := newQueries(f, nil)

	err = q.DeleteSale(f.ctx, f.cashier, "S1")
	assert.ErrorIs(t, err, domain.ErrAuthorizationDenied, "solo administradores borran")

	admin := caller("u-admin", entity.AccountFull, "")
	require.NoError(t, q.DeleteSale(f.ctx, admin, "S1"))

	got, err := f.store.Sales().GetByID(f.ctx, "S1")
	require.NoError(t, err)
	assert.Nil(t, got, "venta e ítems borrados juntos")
	assert.Equal(t, 3, f.quantity(t, 1), "el borrado no repone stock")

	assert.ErrorIs(t, q.DeleteSale(f.ctx, admin, "S1"), domain.ErrNotFound)
}

func TestReceiptPDF_UsaElLocalDeLaVenta(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, 5)
	_, err := f.uc.RegisterSale(f.ctx, f.cashier, request("S1", line(1, 1, "1.00")))
	require.NoError(t, err)
	gen := &stubReceipts{}
	q := newQueries(f, gen)

	pdf, name, err := q.ReceiptPDF(f.ctx, f.cashier, "S1")
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "recibo_S1.pdf", name)
	require.NotNil(t, gen.location)
	assert.Equal(t, "Geral", gen.location.Name)
}
