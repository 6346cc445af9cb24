package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/application/sales"
	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
	"github.com/jhoicas/caja-api/internal/infrastructure/postgres"
	"github.com/jhoicas/caja-api/pkg/config"
)

// setupDB conecta a TEST_DATABASE_URL; si no está o no responde, el test se omite.
func setupDB(t *testing.T) (*pgxpool.Pool, *entity.StockLocation) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido, se omite la prueba de integración")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 60})
	if err != nil {
		t.Skipf("PostgreSQL no disponible: %v", err)
	}
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.EnsureSchema(ctx, pool, "Geral"))

	loc, err := postgres.NewStockLocationRepository(pool).GetByName(ctx, "Geral")
	require.NoError(t, err)
	require.NotNil(t, loc)
	return pool, loc
}

// productID devuelve un producto único por test para no chocar con corridas anteriores.
func productID() int64 {
	return time.Now().UnixNano() % 1_000_000_000
}

func TestLedger_ConcurrenteNuncaSobrevende(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	ledger := postgres.NewStockLedger(pool)
	pid := productID()
	require.NoError(t, ledger.Increment(ctx, loc.ID, pid, 20))

	var wg sync.WaitGroup
	var applied atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.TryDecrement(ctx, loc.ID, pid, 1)
			if err == nil && ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	q, err := ledger.Quantity(ctx, loc.ID, pid)
	require.NoError(t, err)
	assert.Equal(t, int32(20), applied.Load())
	assert.Zero(t, q)
}

func TestTxRunner_RollbackYDuplicado(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	runner := postgres.NewTxRunner(pool)
	ledger := postgres.NewStockLedger(pool)
	pid := productID()
	require.NoError(t, ledger.Increment(ctx, loc.ID, pid, 5))
	saleID := uuid.NewString()

	sale := &entity.Sale{
		ID: saleID, LocationID: loc.ID, RegisterID: "it", Operator: "test",
		SoldAt: time.Now().UTC(), TotalValue: decimal.RequireFromString("10.00"), PaymentMethod: "cash",
		Items: []*entity.SoldItem{{
			ID: uuid.NewString(), ProductID: pid, ProductName: "Producto", Quantity: 2,
			UnitValue: decimal.RequireFromString("5.00"), TotalValue: decimal.RequireFromString("10.00"),
		}},
	}
	write := func(fail bool) error {
		return runner.RunSale(ctx, func(_ repository.StockLocationRepository, l repository.StockLedger, s repository.SaleRepository) error {
			if err := s.Create(ctx, sale); err != nil {
				return err
			}
			if ok, err := l.TryDecrement(ctx, loc.ID, pid, 2); err != nil || !ok {
				return fmt.Errorf("decrement: ok=%v err=%v", ok, err)
			}
			if fail {
				return fmt.Errorf("abortada")
			}
			return s.CreateItems(ctx, sale.ID, sale.Items)
		})
	}

	require.Error(t, write(true))
	q, _ := ledger.Quantity(ctx, loc.ID, pid)
	assert.Equal(t, 5, q, "rollback revierte el descuento")

	require.NoError(t, write(false))
	assert.ErrorIs(t, write(false), domain.ErrDuplicateSale)
	q, _ = ledger.Quantity(ctx, loc.ID, pid)
	assert.Equal(t, 3, q)

	repo := postgres.NewSaleRepository(pool)
	got, err := repo.GetByID(ctx, saleID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(got.TotalValue))
	assert.Nil(t, got.ReceivedValue)

	deleted, err := repo.Delete(ctx, saleID)
	require.NoError(t, err)
	assert.True(t, deleted)
	got, err = repo.GetByID(ctx, saleID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ──────────────────────────────────────────────────────────────────────────────
// Motor de ventas sobre PostgreSQL
// ──────────────────────────────────────────────────────────────────────────────

func newEngine(pool *pgxpool.Pool, runner sales.SalesTxRunner) *sales.RegisterSaleUseCase {
	return sales.NewRegisterSaleUseCase(
		runner,
		postgres.NewSaleRepository(pool),
		postgres.NewCatalogRepository(pool),
		authz.NewPrivilegeGate(),
		nil,
		zerolog.Nop(),
		sales.Config{DefaultLocation: "Geral", TxTimeout: 10 * time.Second},
	)
}

var cashier = entity.Caller{
	UserID:         "it-caixa",
	Name:           "Caja de integración",
	AccountType:    entity.AccountCaixa,
	RegisterNumber: "it",
	Privileges:     authz.DefaultPrivileges(entity.AccountCaixa),
}

func saleRequest(id string, lines ...dto.SaleLineRequest) dto.RegisterSaleRequest {
	return dto.RegisterSaleRequest{ID: id, RegisterID: "it", Operator: "test", PaymentMethod: "cash", Items: lines}
}

func saleLine(productID int64, qty int) dto.SaleLineRequest {
	unit := decimal.RequireFromString("1.50")
	return dto.SaleLineRequest{ProductID: productID, ProductName: "Producto", Quantity: qty, UnitValue: &unit}
}

func countSales(t *testing.T, pool *pgxpool.Pool, id string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT count(*) FROM sales WHERE id = $1`, id).Scan(&n))
	return n
}

func TestRegisterSale_Postgres_MismoIDConcurrente(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	ledger := postgres.NewStockLedger(pool)
	pid := productID()
	require.NoError(t, ledger.Increment(ctx, loc.ID, pid, 10))
	uc := newEngine(pool, postgres.NewTxRunner(pool))
	saleID := uuid.NewString()

	const callers = 20
	var wg sync.WaitGroup
	var created, replayed atomic.Int32
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := uc.RegisterSale(ctx, cashier, saleRequest(saleID, saleLine(pid, 2)))
			errs[i] = err
			if err != nil {
				return
			}
			if r.Replayed {
				replayed.Add(1)
			} else {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err, "todas las llamadas con el mismo id reciben el recibo")
	}
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(callers-1), replayed.Load())
	assert.Equal(t, 1, countSales(t, pool, saleID))
	q, err := ledger.Quantity(ctx, loc.ID, pid)
	require.NoError(t, err)
	assert.Equal(t, 8, q, "se descuenta una sola vez")
}

func TestRegisterSale_Postgres_DosCajasPorLasUltimasUnidades(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	ledger := postgres.NewStockLedger(pool)
	pid := productID()
	require.NoError(t, ledger.Increment(ctx, loc.ID, pid, 5))
	uc := newEngine(pool, postgres.NewTxRunner(pool))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = uc.RegisterSale(ctx, cashier, saleRequest(uuid.NewString(), saleLine(pid, 3)))
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		var insufficient *domain.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, pid, insufficient.ProductID)
		assert.Equal(t, 2, insufficient.Available)
	}
	assert.Equal(t, 1, ok, "exactamente una venta pasa")
	q, err := ledger.Quantity(ctx, loc.ID, pid)
	require.NoError(t, err)
	assert.Equal(t, 2, q)
}

func TestRegisterSale_Postgres_CanastasCruzadasNoSeBloquean(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	ledger := postgres.NewStockLedger(pool)
	a := productID()
	b := a + 1
	require.NoError(t, ledger.Increment(ctx, loc.ID, a, 100))
	require.NoError(t, ledger.Increment(ctx, loc.ID, b, 100))
	uc := newEngine(pool, postgres.NewTxRunner(pool))

	const callers = 30
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lines := []dto.SaleLineRequest{saleLine(a, 1), saleLine(b, 1)}
			if i%2 == 1 {
				lines = []dto.SaleLineRequest{saleLine(b, 1), saleLine(a, 1)}
			}
			_, errs[i] = uc.RegisterSale(ctx, cashier, saleRequest(uuid.NewString(), lines...))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err, "canastas {A,B} y {B,A} no terminan en deadlock")
	}
	qa, _ := ledger.Quantity(ctx, loc.ID, a)
	qb, _ := ledger.Quantity(ctx, loc.ID, b)
	assert.Equal(t, 100-callers, qa)
	assert.Equal(t, 100-callers, qb)
}

func TestRegisterSale_Postgres_ReciboConservaElOrden(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	ledger := postgres.NewStockLedger(pool)
	p := productID()
	ids := []int64{p + 2, p, p + 1}
	for _, id := range ids {
		require.NoError(t, ledger.Increment(ctx, loc.ID, id, 3))
	}
	uc := newEngine(pool, postgres.NewTxRunner(pool))
	saleID := uuid.NewString()
	in := saleRequest(saleID, saleLine(ids[0], 1), saleLine(ids[1], 1), saleLine(ids[2], 1))

	_, err := uc.RegisterSale(ctx, cashier, in)
	require.NoError(t, err)
	replay, err := uc.RegisterSale(ctx, cashier, in)
	require.NoError(t, err)
	require.True(t, replay.Replayed)

	require.Len(t, replay.Items, 3)
	for i, it := range replay.Items {
		assert.Equal(t, ids[i], it.ProductID, "línea %d", i)
	}
}

// itemsTwiceRunner inserta los ítems dos veces: el segundo batch viola la PK y aborta la transacción.
type itemsTwiceRunner struct {
	inner *postgres.TxRunner
}

func (r itemsTwiceRunner) RunSale(ctx context.Context, fn func(repository.StockLocationRepository, repository.StockLedger, repository.SaleRepository) error) error {
	return r.inner.RunSale(ctx, func(loc repository.StockLocationRepository, ledger repository.StockLedger, s repository.SaleRepository) error {
		return fn(loc, ledger, itemsTwice{SaleRepository: s})
	})
}

type itemsTwice struct {
	repository.SaleRepository
}

func (s itemsTwice) CreateItems(ctx context.Context, saleID string, items []*entity.SoldItem) error {
	if err := s.SaleRepository.CreateItems(ctx, saleID, items); err != nil {
		return err
	}
	return s.SaleRepository.CreateItems(ctx, saleID, items)
}

func TestRegisterSale_Postgres_TransaccionAbortadaRevierteTodo(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	ledger := postgres.NewStockLedger(pool)
	a := productID()
	b := a + 1
	require.NoError(t, ledger.Increment(ctx, loc.ID, a, 4))
	require.NoError(t, ledger.Increment(ctx, loc.ID, b, 4))
	uc := newEngine(pool, itemsTwiceRunner{inner: postgres.NewTxRunner(pool)})
	saleID := uuid.NewString()

	_, err := uc.RegisterSale(ctx, cashier, saleRequest(saleID, saleLine(a, 2), saleLine(b, 3)))

	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, domain.IsBusiness(err))
	qa, _ := ledger.Quantity(ctx, loc.ID, a)
	qb, _ := ledger.Quantity(ctx, loc.ID, b)
	assert.Equal(t, 4, qa, "la compensación falla en la tx abortada y el rollback restaura el stock")
	assert.Equal(t, 4, qb)
	assert.Zero(t, countSales(t, pool, saleID))
}

func TestRegisterSale_Postgres_SinStockCompensaDentroDeLaTx(t *testing.T) {
	pool, loc := setupDB(t)
	ctx := context.Background()
	ledger := postgres.NewStockLedger(pool)
	a := productID()
	b := a + 1
	require.NoError(t, ledger.Increment(ctx, loc.ID, a, 4))
	require.NoError(t, ledger.Increment(ctx, loc.ID, b, 1))
	uc := newEngine(pool, postgres.NewTxRunner(pool))
	saleID := uuid.NewString()

	_, err := uc.RegisterSale(ctx, cashier, saleRequest(saleID, saleLine(a, 2), saleLine(b, 3)))

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, b, insufficient.ProductID)
	assert.Equal(t, 1, insufficient.Available)
	qa, _ := ledger.Quantity(ctx, loc.ID, a)
	assert.Equal(t, 4, qa)
	assert.Zero(t, countSales(t, pool, saleID))

	// El id queda libre para el reintento corregido.
	_, err = uc.RegisterSale(ctx, cashier, saleRequest(saleID, saleLine(a, 2), saleLine(b, 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, countSales(t, pool, saleID))
}
