package repository

import (
	"context"
	"time"

	"github.com/jhoicas/caja-api/internal/domain/entity"
)

// SaleRepository define el puerto del almacén de ventas (append-only, clave = ID de la venta).
type SaleRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Create persiste la cabecera. Retorna domain.ErrDuplicateSale si el ID ya existe.
	Create(ctx context.Context, sale *entity.Sale) error
	CreateItems(ctx context.Context, saleID string, items []*entity.SoldItem) error
	// GetByID devuelve la venta con sus ítems, o (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// ListByRegister lista las ventas de una caja, más recientes primero. since nil = sin límite temporal.
	ListByRegister(ctx context.Context, registerID string, since *time.Time, limit int) ([]*entity.Sale, error)
	// Delete borra la venta y sus ítems. Retorna false si no existía.
	Delete(ctx context.Context, id string) (bool, error)
}
