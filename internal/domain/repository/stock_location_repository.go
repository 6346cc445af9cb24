package repository

import (
	"context"

	"github.com/jhoicas/caja-api/internal/domain/entity"
)

// StockLocationRepository resuelve locales de estoque. Retorna (nil, nil) si no existe.
type StockLocationRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.StockLocation, error)
	GetByName(ctx context.Context, name string) (*entity.StockLocation, error)
}
