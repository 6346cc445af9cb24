package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/application/sales"
)

// SaleHandler maneja las peticiones HTTP de ventas (protegido).
type SaleHandler struct {
	register *sales.RegisterSaleUseCase
	queries  *sales.SaleQueryUseCase
}

// NewSaleHandler construye el handler.
func NewSaleHandler(register *sales.RegisterSaleUseCase, queries *sales.SaleQueryUseCase) *SaleHandler {
	return &SaleHandler{register: register, queries: queries}
}

// Register godoc
// @Summary      Registrar venta
// @Description  Descuenta el stock de cada línea y guarda la venta de forma atómica.
//
//	Reenviar el mismo id devuelve el recibo original (200, replayed=true) sin volver a descontar.
//
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterSaleRequest  true  "venta"
// @Success      201   {object}  dto.SaleReceiptResponse
// @Success      200   {object}  dto.SaleReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	receipt, err := h.register.RegisterSale(c.Context(), GetCaller(c), in)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if receipt.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(receipt)
}

// GetByID godoc
// @Summary      Obtener recibo
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleReceiptResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	receipt, err := h.queries.GetSale(c.Context(), GetCaller(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(receipt)
}

// ReceiptPDF godoc
// @Summary      Recibo en PDF
// @Tags         sales
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/receipt.pdf [get]
func (h *SaleHandler) ReceiptPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.queries.ReceiptPDF(c.Context(), GetCaller(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}

// Delete godoc
// @Summary      Borrar venta (solo ADMIN)
// @Description  Borra la venta y sus ítems. No repone stock.
// @Tags         sales
// @Security     Bearer
// @Param        id   path  string  true  "ID de la venta"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) Delete(c *fiber.Ctx) error {
	if err := h.queries.DeleteSale(c.Context(), GetCaller(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListByRegister godoc
// @Summary      Ventas de una caja
// @Description  Administradores ven todo el historial; la propia caja ve los últimos 7 días.
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        register_id  path   string  true   "número de caja"
// @Param        limit        query  int     false  "máximo 200"
// @Success      200  {object}  dto.SaleListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/registers/{register_id}/sales [get]
func (h *SaleHandler) ListByRegister(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "limit inválido"})
	}
	list, err := h.queries.ListByRegister(c.Context(), GetCaller(c), c.Params("register_id"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}
