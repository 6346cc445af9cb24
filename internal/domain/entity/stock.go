package entity

import "time"

// StockLocation es un pool de inventario con nombre (ej: "Geral", depósito, góndola).
type StockLocation struct {
	ID          int64
	Name        string
	Description string
}

// StockEntry representa la cantidad disponible de un producto en un local (location_id, product_id) → quantity.
// Una fila inexistente equivale a cantidad 0. Quantity nunca es negativa.
type StockEntry struct {
	LocationID int64
	ProductID  int64
	Quantity   int
	UpdatedAt  time.Time
}
