package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

var _ repository.CatalogLookup = (*CatalogRepo)(nil)

// CatalogRepo lectura del catálogo de productos (tabla products).
type CatalogRepo struct {
	q Querier
}

func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

func (r *CatalogRepo) GetProduct(ctx context.Context, productID int64) (*entity.ProductSnapshot, error) {
	var p entity.ProductSnapshot
	err := r.q.QueryRow(ctx,
		`SELECT id, name, brand, sale_value, category FROM products WHERE id = $1`,
		productID).Scan(&p.ID, &p.Name, &p.Brand, &p.SaleValue, &p.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}
