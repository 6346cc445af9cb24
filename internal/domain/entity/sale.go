package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale representa una venta registrada (un recibo). El ID lo genera el cliente y funciona como clave de idempotencia.
// Inmutable después de creada; al borrarla se borran también sus SoldItems.
type Sale struct {
	ID            string
	LocationID    int64
	RegisterID    string // caja/estación que registró la venta
	Operator      string
	SoldAt        time.Time
	TotalValue    decimal.Decimal
	PaymentMethod string
	ReceivedValue *decimal.Decimal
	Change        *decimal.Decimal
	ClientID      *int64
	Items         []*SoldItem
}

// SoldItem línea de un recibo. Snapshot histórico independiente del catálogo.
type SoldItem struct {
	ID          string
	SaleID      string
	LineNo      int // posición en la canasta, desde 1
	ProductID   int64
	ProductName string
	Quantity    int
	UnitValue   decimal.Decimal
	TotalValue  decimal.Decimal
}

// ItemsCount total de unidades vendidas.
func (s *Sale) ItemsCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}
