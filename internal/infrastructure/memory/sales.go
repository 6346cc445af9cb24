package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/caja-api/internal/application/sales"
	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

var _ sales.SalesTxRunner = (*Store)(nil)

// memTx registra lo hecho dentro de RunSale para confirmarlo o revertirlo al final.
type memTx struct {
	store   *Store
	created map[string]*entity.Sale
	deleted map[string]struct{}
	deltas  map[stockKey]int
}

// RunSale ejecuta fn con repositorios atados a una transacción en memoria.
// Los descuentos se aplican de inmediato; si fn falla se revierte el neto de cada clave
// y se liberan los IDs de venta reservados.
func (s *Store) RunSale(ctx context.Context, fn func(
	locationRepo repository.StockLocationRepository,
	ledger repository.StockLedger,
	saleRepo repository.SaleRepository,
) error) error {
	tx := &memTx{
		store:   s,
		created: make(map[string]*entity.Sale),
		deleted: make(map[string]struct{}),
		deltas:  make(map[stockKey]int),
	}
	if err := fn(s.Locations(), txLedger{tx}, txSaleRepo{tx}); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (tx *memTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sale := range tx.created {
		s.sales[id] = sale
		tx.release(id)
	}
	for id := range tx.deleted {
		delete(s.sales, id)
	}
}

func (tx *memTx) rollback() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, d := range tx.deltas {
		if d != 0 {
			s.applyDelta(k, -d)
		}
	}
	for id := range tx.created {
		tx.release(id)
	}
}

// release requiere s.mu tomado.
func (tx *memTx) release(id string) {
	if c, ok := tx.store.pending[id]; ok && c.owner == tx {
		close(c.done)
		delete(tx.store.pending, id)
	}
}

// ── ledger transaccional ─────────────────────────────────────────────────────

type txLedger struct{ tx *memTx }

func (l txLedger) TryDecrement(ctx context.Context, locationID, productID int64, amount int) (bool, error) {
	ok, err := l.tx.store.TryDecrement(ctx, locationID, productID, amount)
	if ok {
		l.tx.store.mu.Lock()
		l.tx.deltas[stockKey{locationID, productID}] -= amount
		l.tx.store.mu.Unlock()
	}
	return ok, err
}

func (l txLedger) Increment(ctx context.Context, locationID, productID int64, amount int) error {
	if err := l.tx.store.Increment(ctx, locationID, productID, amount); err != nil {
		return err
	}
	l.tx.store.mu.Lock()
	l.tx.deltas[stockKey{locationID, productID}] += amount
	l.tx.store.mu.Unlock()
	return nil
}

func (l txLedger) Quantity(ctx context.Context, locationID, productID int64) (int, error) {
	return l.tx.store.Quantity(ctx, locationID, productID)
}

// ── ventas transaccionales ───────────────────────────────────────────────────

type txSaleRepo struct{ tx *memTx }

func (r txSaleRepo) Exists(ctx context.Context, id string) (bool, error) {
	if _, ok := r.tx.created[id]; ok {
		return true, nil
	}
	return r.tx.store.Sales().Exists(ctx, id)
}

// Create reserva el ID. Si otra transacción lo tiene reservado, espera a que confirme o revierta,
// como hace el índice único de PostgreSQL.
func (r txSaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	s := r.tx.store
	for {
		s.mu.Lock()
		if _, ok := s.sales[sale.ID]; ok {
			s.mu.Unlock()
			return domain.ErrDuplicateSale
		}
		c, busy := s.pending[sale.ID]
		if !busy {
			s.pending[sale.ID] = &claim{owner: r.tx, done: make(chan struct{})}
			r.tx.created[sale.ID] = cloneSale(sale)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		if c.owner == r.tx {
			return domain.ErrDuplicateSale
		}
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r txSaleRepo) CreateItems(_ context.Context, saleID string, items []*entity.SoldItem) error {
	sale, ok := r.tx.created[saleID]
	if !ok {
		return domain.ErrNotFound
	}
	sale.Items = cloneItems(items)
	return nil
}

func (r txSaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	if sale, ok := r.tx.created[id]; ok {
		return cloneSale(sale), nil
	}
	return r.tx.store.Sales().GetByID(ctx, id)
}

func (r txSaleRepo) ListByRegister(ctx context.Context, registerID string, since *time.Time, limit int) ([]*entity.Sale, error) {
	return r.tx.store.Sales().ListByRegister(ctx, registerID, since, limit)
}

func (r txSaleRepo) Delete(_ context.Context, id string) (bool, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sales[id]; !ok {
		return false, nil
	}
	if _, gone := r.tx.deleted[id]; gone {
		return false, nil
	}
	r.tx.deleted[id] = struct{}{}
	return true, nil
}

// ── SaleRepository fuera de transacción ──────────────────────────────────────

// SaleRepo acceso a ventas confirmadas.
type SaleRepo struct{ s *Store }

func (r *SaleRepo) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.sales[id]
	return ok, nil
}

// Create confirma la cabecera (con sus ítems si vienen) en un solo paso.
func (r *SaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	return r.s.RunSale(ctx, func(_ repository.StockLocationRepository, _ repository.StockLedger, tr repository.SaleRepository) error {
		return tr.Create(ctx, sale)
	})
}

func (r *SaleRepo) CreateItems(_ context.Context, saleID string, items []*entity.SoldItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.sales[saleID]
	if !ok {
		return domain.ErrNotFound
	}
	sale.Items = append(sale.Items, cloneItems(items)...)
	return nil
}

func (r *SaleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sale, ok := r.s.sales[id]; ok {
		return cloneSale(sale), nil
	}
	return nil, nil
}

func (r *SaleRepo) ListByRegister(_ context.Context, registerID string, since *time.Time, limit int) ([]*entity.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Sale, 0)
	for _, sale := range r.s.sales {
		if sale.RegisterID != registerID {
			continue
		}
		if since != nil && sale.SoldAt.Before(*since) {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SoldAt.Equal(out[j].SoldAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SoldAt.After(out[j].SoldAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SaleRepo) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sales[id]; !ok {
		return false, nil
	}
	delete(r.s.sales, id)
	return true, nil
}

// SaleCount cantidad de ventas confirmadas.
func (s *Store) SaleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

func cloneSale(in *entity.Sale) *entity.Sale {
	cp := *in
	cp.Items = cloneItems(in.Items)
	return &cp
}

func cloneItems(in []*entity.SoldItem) []*entity.SoldItem {
	out := make([]*entity.SoldItem, 0, len(in))
	for _, it := range in {
		c := *it
		out = append(out, &c)
	}
	return out
}
