package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

const saleColumns = `id, stock_id, register_id, operator, sold_at, total_value, payment_method, received_value, change_value, client_id`

// SaleRepo ventas y sus ítems (tablas sales y sold_items).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

func (r *SaleRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sales WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists sale: %w", err)
	}
	return exists, nil
}

// Create inserta la cabecera. Si otra tx insertó el mismo ID y aún no confirmó, el INSERT espera
// a que termine; si confirmó, falla con 23505 y se traduce a domain.ErrDuplicateSale.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.LocationID, s.RegisterID, s.Operator, s.SoldAt,
		s.TotalValue, s.PaymentMethod, s.ReceivedValue, s.Change, s.ClientID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSale
		}
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

// CreateItems inserta los ítems en un solo batch.
func (r *SaleRepo) CreateItems(ctx context.Context, saleID string, items []*entity.SoldItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO sold_items (id, sale_id, line_no, product_id, product_name, quantity, unit_value, total_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, saleID, it.LineNo, it.ProductID, it.ProductName, it.Quantity, it.UnitValue, it.TotalValue)
	}
	br := r.q.SendBatch(ctx, batch)
	for range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("create sold item: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("create sold items: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	row := r.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	s, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	byID, err := r.loadItems(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Items = byID[s.ID]
	return s, nil
}

func (r *SaleRepo) ListByRegister(ctx context.Context, registerID string, since *time.Time, limit int) ([]*entity.Sale, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+saleColumns+` FROM sales
		WHERE register_id = $1 AND ($2::timestamptz IS NULL OR sold_at >= $2)
		ORDER BY sold_at DESC, id DESC
		LIMIT $3`, registerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var list []*entity.Sale
	ids := make([]string, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	byID, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		s.Items = byID[s.ID]
	}
	return list, nil
}

// Delete borra la cabecera; sold_items se borra por ON DELETE CASCADE en la misma sentencia.
func (r *SaleRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete sale: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SaleRepo) loadItems(ctx context.Context, saleIDs []string) (map[string][]*entity.SoldItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, line_no, product_id, product_name, quantity, unit_value, total_value
		FROM sold_items WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no, id`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("list sold items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]*entity.SoldItem, len(saleIDs))
	for rows.Next() {
		var it entity.SoldItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.LineNo, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitValue, &it.TotalValue); err != nil {
			return nil, fmt.Errorf("scan sold item: %w", err)
		}
		out[it.SaleID] = append(out[it.SaleID], &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sold items: %w", err)
	}
	return out, nil
}

func scanSale(row pgx.Row) (*entity.Sale, error) {
	var s entity.Sale
	err := row.Scan(
		&s.ID, &s.LocationID, &s.RegisterID, &s.Operator, &s.SoldAt,
		&s.TotalValue, &s.PaymentMethod, &s.ReceivedValue, &s.Change, &s.ClientID,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
