package repository

import "context"

// StockLedger es el puerto del libro de inventario: único dueño de la cantidad disponible
// por (local, producto). Toda mutación es atómica en el almacenamiento; nunca se lee y luego se escribe.
type StockLedger interface {
	// TryDecrement resta amount solo si la cantidad actual es >= amount, en una sola operación atómica.
	// Retorna false (fila intacta) si no alcanza.
	TryDecrement(ctx context.Context, locationID, productID int64, amount int) (bool, error)
	// Increment suma amount sin condición; crea la fila si no existe.
	Increment(ctx context.Context, locationID, productID int64, amount int) error
	// Quantity devuelve la cantidad actual (0 si no hay fila).
	Quantity(ctx context.Context, locationID, productID int64) (int, error)
}
