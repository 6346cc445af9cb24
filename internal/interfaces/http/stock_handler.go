package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/application/inventory"
)

// StockHandler abastecimiento y consulta de stock por local (protegido).
type StockHandler struct {
	uc *inventory.StockUseCase
}

func NewStockHandler(uc *inventory.StockUseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// Add godoc
// @Summary      Sumar stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        stock_id    path  int                  true  "local"
// @Param        product_id  path  int                  true  "producto"
// @Param        body        body  dto.AddStockRequest  true  "cantidad"
// @Success      200  {object}  dto.StockEntryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocks/{stock_id}/products/{product_id} [post]
func (h *StockHandler) Add(c *fiber.Ctx) error {
	locationID, productID, ok := stockPath(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "stock_id y product_id deben ser numéricos"})
	}
	var in dto.AddStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.AddStock(c.Context(), GetCaller(c), locationID, productID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Consultar stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        stock_id    path  int  true  "local"
// @Param        product_id  path  int  true  "producto"
// @Success      200  {object}  dto.StockEntryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocks/{stock_id}/products/{product_id} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	locationID, productID, ok := stockPath(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "stock_id y product_id deben ser numéricos"})
	}
	out, err := h.uc.GetQuantity(c.Context(), locationID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func stockPath(c *fiber.Ctx) (int64, int64, bool) {
	locationID, err := strconv.ParseInt(c.Params("stock_id"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	productID, err := strconv.ParseInt(c.Params("product_id"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return locationID, productID, true
}
