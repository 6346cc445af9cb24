package dto

// AddStockRequest body para POST /api/stocks/:stock_id/products/:product_id.
type AddStockRequest struct {
	Quantity int `json:"quantity"`
}

// StockEntryResponse cantidad de un producto en un local.
type StockEntryResponse struct {
	LocationID int64 `json:"location_id"`
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
}
