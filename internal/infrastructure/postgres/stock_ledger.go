package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/caja-api/internal/domain/repository"
)

var _ repository.StockLedger = (*StockLedger)(nil)

// StockLedger libro de inventario sobre stock_items (usable con pool o tx).
type StockLedger struct {
	q Querier
}

// NewStockLedger construye el adaptador. Pasar pool o tx (Querier).
func NewStockLedger(q Querier) *StockLedger {
	return &StockLedger{q: q}
}

// TryDecrement compara y descuenta en un solo UPDATE. El lock de fila serializa a los concurrentes:
// el segundo reevalúa la condición sobre la cantidad ya confirmada.
func (r *StockLedger) TryDecrement(ctx context.Context, locationID, productID int64, amount int) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("try decrement: cantidad inválida %d", amount)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_items
		SET quantity = quantity - $3, updated_at = now()
		WHERE stock_id = $1 AND product_id = $2 AND quantity >= $3`,
		locationID, productID, amount)
	if err != nil {
		return false, fmt.Errorf("try decrement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Increment suma sin condición; crea la fila si no existe.
func (r *StockLedger) Increment(ctx context.Context, locationID, productID int64, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("increment: cantidad inválida %d", amount)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_items (stock_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (stock_id, product_id)
		DO UPDATE SET quantity = stock_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		locationID, productID, amount)
	if err != nil {
		return fmt.Errorf("increment: %w", err)
	}
	return nil
}

// Quantity devuelve la cantidad actual (0 si no hay fila).
func (r *StockLedger) Quantity(ctx context.Context, locationID, productID int64) (int, error) {
	var qty int
	err := r.q.QueryRow(ctx,
		`SELECT quantity FROM stock_items WHERE stock_id = $1 AND product_id = $2`,
		locationID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("quantity: %w", err)
	}
	return qty, nil
}
