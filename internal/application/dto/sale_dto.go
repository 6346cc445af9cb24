package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterSaleRequest body para POST /api/sales.
// ID lo genera el cliente (UUID4 recomendado) y es la clave de idempotencia.
// LocationID acepta el ID numérico o el nombre del local; vacío = local por defecto ("Geral").
// TotalValue es el total final con descuentos; si falta se usa la suma de las líneas.
type RegisterSaleRequest struct {
	ID            string            `json:"id"`
	LocationID    string            `json:"location_id,omitempty"`
	RegisterID    string            `json:"register_id"`
	Operator      string            `json:"operator"`
	TotalValue    *decimal.Decimal  `json:"total_value,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	ReceivedValue *decimal.Decimal  `json:"received_value,omitempty"`
	Change        *decimal.Decimal  `json:"change,omitempty"`
	ClientID      *int64            `json:"client_id,omitempty"`
	Items         []SaleLineRequest `json:"items"`
}

// SaleLineRequest línea de la canasta. ProductName y UnitValue son el snapshot que
// envía la caja; si faltan se completan con el catálogo.
type SaleLineRequest struct {
	ProductID   int64            `json:"product_id"`
	ProductName string           `json:"product_name,omitempty"`
	Quantity    int              `json:"quantity"`
	UnitValue   *decimal.Decimal `json:"unit_value,omitempty"`
	TotalValue  *decimal.Decimal `json:"total_value,omitempty"`
}

// SaleReceiptResponse recibo de una venta persistida.
// Replayed = true cuando la venta ya existía y se devolvió el recibo original.
type SaleReceiptResponse struct {
	ID            string             `json:"id"`
	LocationID    int64              `json:"location_id"`
	RegisterID    string             `json:"register_id"`
	Operator      string             `json:"operator"`
	SoldAt        time.Time          `json:"sold_at"`
	TotalValue    decimal.Decimal    `json:"total_value"`
	PaymentMethod string             `json:"payment_method"`
	ReceivedValue *decimal.Decimal   `json:"received_value,omitempty"`
	Change        *decimal.Decimal   `json:"change,omitempty"`
	ClientID      *int64             `json:"client_id,omitempty"`
	ItemsCount    int                `json:"items_count"`
	Items         []SoldItemResponse `json:"items"`
	Replayed      bool               `json:"replayed"`
}

// SoldItemResponse línea del recibo.
type SoldItemResponse struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// SaleListResponse listado de ventas de una caja.
type SaleListResponse struct {
	RegisterID string                `json:"register_id"`
	Total      int                   `json:"total"`
	Sales      []SaleReceiptResponse `json:"sales"`
}
