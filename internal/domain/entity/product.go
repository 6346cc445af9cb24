package entity

import "github.com/shopspring/decimal"

// ProductSnapshot atributos descriptivos del catálogo en el instante de la venta.
// Se desnormalizan en SoldItem; ediciones posteriores del catálogo no afectan ventas ya registradas.
type ProductSnapshot struct {
	ID        int64
	Name      string
	Brand     string
	SaleValue decimal.Decimal // precio de venta al consumidor
	Category  string
}
