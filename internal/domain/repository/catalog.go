package repository

import (
	"context"

	"github.com/jhoicas/caja-api/internal/domain/entity"
)

// CatalogLookup resuelve un producto a sus atributos descriptivos. Retorna (nil, nil) si no existe.
type CatalogLookup interface {
	GetProduct(ctx context.Context, productID int64) (*entity.ProductSnapshot, error)
}
