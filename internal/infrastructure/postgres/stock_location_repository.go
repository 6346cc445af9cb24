package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

var _ repository.StockLocationRepository = (*StockLocationRepo)(nil)

// StockLocationRepo locales de estoque (tabla stocks).
type StockLocationRepo struct {
	q Querier
}

func NewStockLocationRepository(q Querier) *StockLocationRepo {
	return &StockLocationRepo{q: q}
}

func (r *StockLocationRepo) GetByID(ctx context.Context, id int64) (*entity.StockLocation, error) {
	return r.getOne(ctx, `SELECT id, name, description FROM stocks WHERE id = $1`, id)
}

// GetByName busca sin distinguir mayúsculas ("geral" = "Geral").
func (r *StockLocationRepo) GetByName(ctx context.Context, name string) (*entity.StockLocation, error) {
	return r.getOne(ctx, `SELECT id, name, description FROM stocks WHERE lower(name) = lower($1)`, name)
}

func (r *StockLocationRepo) getOne(ctx context.Context, query string, arg any) (*entity.StockLocation, error) {
	var loc entity.StockLocation
	err := r.q.QueryRow(ctx, query, arg).Scan(&loc.ID, &loc.Name, &loc.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock location: %w", err)
	}
	return &loc, nil
}
