package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

// recentWindow ventana visible para cajas que no son administradoras.
const recentWindow = 7 * 24 * time.Hour

// SaleQueryUseCase consultas y mantenimiento de ventas ya registradas.
type SaleQueryUseCase struct {
	saleRepo     repository.SaleRepository
	locationRepo repository.StockLocationRepository
	txRunner     SalesTxRunner
	authorizer   Authorizer
	receipts     ReceiptGenerator
	log          zerolog.Logger
	now          func() time.Time
}

// NewSaleQueryUseCase construye el caso de uso. receipts puede ser nil (ReceiptPDF no disponible).
func NewSaleQueryUseCase(
	saleRepo repository.SaleRepository,
	locationRepo repository.StockLocationRepository,
	txRunner SalesTxRunner,
	authorizer Authorizer,
	receipts ReceiptGenerator,
	log zerolog.Logger,
) *SaleQueryUseCase {
	return &SaleQueryUseCase{
		saleRepo:     saleRepo,
		locationRepo: locationRepo,
		txRunner:     txRunner,
		authorizer:   authorizer,
		receipts:     receipts,
		log:          log.With().Str("component", "sale_queries").Logger(),
		now:          time.Now,
	}
}

// GetSale devuelve el recibo. Visible para administradores o para la caja que registró la venta.
func (uc *SaleQueryUseCase) GetSale(ctx context.Context, caller entity.Caller, id string) (*dto.SaleReceiptResponse, error) {
	sale, err := uc.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return toReceipt(sale, false), nil
}

// ListByRegister lista las ventas de una caja, más recientes primero.
// Quien no es administrador solo ve su propia caja y los últimos 7 días.
func (uc *SaleQueryUseCase) ListByRegister(ctx context.Context, caller entity.Caller, registerID string, page dto.PageRequest) (*dto.SaleListResponse, error) {
	registerID = strings.TrimSpace(registerID)
	if registerID == "" {
		return nil, domain.Invalid("register_id", "requerido")
	}
	page.DefaultPage()

	admin, err := uc.isAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	var since *time.Time
	if !admin {
		if caller.RegisterNumber == "" || caller.RegisterNumber != registerID {
			return nil, domain.ErrAuthorizationDenied
		}
		t := uc.now().UTC().Add(-recentWindow)
		since = &t
	}

	list, err := uc.saleRepo.ListByRegister(ctx, registerID, since, page.Limit)
	if err != nil {
		return nil, domain.Persistence("listar ventas", err)
	}
	out := &dto.SaleListResponse{
		RegisterID: registerID,
		Total:      len(list),
		Sales:      make([]dto.SaleReceiptResponse, 0, len(list)),
	}
	for _, s := range list {
		out.Sales = append(out.Sales, *toReceipt(s, false))
	}
	return out, nil
}

// DeleteSale borra la venta y todos sus ítems en una sola transacción. Solo administradores.
// El stock descontado no se reintegra.
func (uc *SaleQueryUseCase) DeleteSale(ctx context.Context, caller entity.Caller, id string) error {
	admin, err := uc.isAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if !admin {
		return domain.ErrAuthorizationDenied
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invalid("id", "requerido")
	}

	err = uc.txRunner.RunSale(ctx, func(
		_ repository.StockLocationRepository,
		_ repository.StockLedger,
		saleRepo repository.SaleRepository,
	) error {
		deleted, err := saleRepo.Delete(ctx, id)
		if err != nil {
			return domain.Persistence("borrar venta", err)
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if domain.IsBusiness(err) {
			return err
		}
		return domain.Persistence("borrar venta", err)
	}
	uc.log.Info().Str("sale_id", id).Str("user_id", caller.UserID).Msg("venta eliminada")
	return nil
}

// ReceiptPDF genera el recibo imprimible. Retorna los bytes y el nombre de archivo sugerido.
func (uc *SaleQueryUseCase) ReceiptPDF(ctx context.Context, caller entity.Caller, id string) ([]byte, string, error) {
	if uc.receipts == nil {
		return nil, "", fmt.Errorf("recibo pdf: generador no configurado")
	}
	sale, err := uc.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, "", err
	}
	location, err := uc.locationRepo.GetByID(ctx, sale.LocationID)
	if err != nil {
		return nil, "", domain.Persistence("obtener local", err)
	}
	if location == nil {
		location = &entity.StockLocation{ID: sale.LocationID}
	}
	pdf, err := uc.receipts.GenerateReceiptPDF(ctx, sale, location)
	if err != nil {
		return nil, "", fmt.Errorf("recibo pdf: %w", err)
	}
	return pdf, fmt.Sprintf("recibo_%s.pdf", sale.ID), nil
}

func (uc *SaleQueryUseCase) loadVisible(ctx context.Context, caller entity.Caller, id string) (*entity.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Invalid("id", "requerido")
	}
	admin, err := uc.isAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	sale, err := uc.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("obtener venta", err)
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	if !admin && (caller.RegisterNumber == "" || caller.RegisterNumber != sale.RegisterID) {
		return nil, domain.ErrAuthorizationDenied
	}
	return sale, nil
}

func (uc *SaleQueryUseCase) isAdmin(ctx context.Context, caller entity.Caller) (bool, error) {
	ok, err := uc.authorizer.Authorize(ctx, caller, authz.CapAdmin)
	if err != nil {
		return false, domain.Persistence("autorizar", err)
	}
	return ok, nil
}

func toReceipt(s *entity.Sale, replayed bool) *dto.SaleReceiptResponse {
	items := make([]dto.SoldItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, dto.SoldItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitValue:   it.UnitValue,
			TotalValue:  it.TotalValue,
		})
	}
	return &dto.SaleReceiptResponse{
		ID:            s.ID,
		LocationID:    s.LocationID,
		RegisterID:    s.RegisterID,
		Operator:      s.Operator,
		SoldAt:        s.SoldAt,
		TotalValue:    s.TotalValue,
		PaymentMethod: s.PaymentMethod,
		ReceivedValue: s.ReceivedValue,
		Change:        s.Change,
		ClientID:      s.ClientID,
		ItemsCount:    s.ItemsCount(),
		Items:         items,
		Replayed:      replayed,
	}
}
