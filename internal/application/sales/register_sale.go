package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/domain"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

const (
	maxSaleIDLength   = 36
	maxQuantity       = math.MaxInt32
	moneyScale        = 2
	publishTimeout    = 5 * time.Second
	compensateTimeout = 10 * time.Second
)

// maxMoney primer valor que no entra en NUMERIC(14,2): 12 dígitos enteros.
var maxMoney = decimal.New(1, 12)

// Config parámetros del motor de ventas.
type Config struct {
	DefaultLocation string        // local usado cuando la venta no indica uno
	TxTimeout       time.Duration // 0 = sin límite propio (solo el del ctx)
}

// RegisterSaleUseCase registra una venta: valida la canasta, descuenta el stock de cada línea con
// el decremento condicional del libro y persiste venta + ítems en una sola transacción.
// Cualquier falla revierte los descuentos ya aplicados en el mismo intento.
type RegisterSaleUseCase struct {
	txRunner   SalesTxRunner
	saleRepo   repository.SaleRepository
	catalog    repository.CatalogLookup
	authorizer Authorizer
	publisher  EventPublisher
	log        zerolog.Logger
	cfg        Config
	now        func() time.Time
}

// NewRegisterSaleUseCase construye el caso de uso. publisher puede ser nil.
func NewRegisterSaleUseCase(
	txRunner SalesTxRunner,
	saleRepo repository.SaleRepository,
	catalog repository.CatalogLookup,
	authorizer Authorizer,
	publisher EventPublisher,
	log zerolog.Logger,
	cfg Config,
) *RegisterSaleUseCase {
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = "Geral"
	}
	return &RegisterSaleUseCase{
		txRunner:   txRunner,
		saleRepo:   saleRepo,
		catalog:    catalog,
		authorizer: authorizer,
		publisher:  publisher,
		log:        log.With().Str("component", "register_sale").Logger(),
		cfg:        cfg,
		now:        time.Now,
	}
}

// RegisterSale ejecuta el registro. Si el ID ya existe devuelve el recibo original (Replayed = true)
// sin volver a descontar stock.
func (uc *RegisterSaleUseCase) RegisterSale(ctx context.Context, caller entity.Caller, in dto.RegisterSaleRequest) (*dto.SaleReceiptResponse, error) {
	allowed, err := uc.authorizer.Authorize(ctx, caller, authz.CapRegisterSale)
	if err != nil {
		return nil, domain.Persistence("autorizar", err)
	}
	if !allowed {
		return nil, domain.ErrAuthorizationDenied
	}

	if err := validateRequest(in); err != nil {
		return nil, err
	}
	saleID := strings.TrimSpace(in.ID)

	exists, err := uc.saleRepo.Exists(ctx, saleID)
	if err != nil {
		return nil, domain.Persistence("verificar venta existente", err)
	}
	if exists {
		return uc.replay(ctx, saleID)
	}

	items, err := uc.resolveLines(ctx, saleID, in.Items)
	if err != nil {
		return nil, err
	}
	sale := uc.buildSale(saleID, caller, in, items)
	if err := checkMoney("total_value", &sale.TotalValue); err != nil {
		return nil, err
	}

	txCtx := ctx
	if uc.cfg.TxTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, uc.cfg.TxTimeout)
		defer cancel()
	}

	err = uc.txRunner.RunSale(txCtx, func(
		locationRepo repository.StockLocationRepository,
		ledger repository.StockLedger,
		saleRepo repository.SaleRepository,
	) error {
		location, err := uc.resolveLocation(txCtx, locationRepo, in.LocationID)
		if err != nil {
			return err
		}
		sale.LocationID = location.ID
		return uc.commitSale(txCtx, ledger, saleRepo, sale)
	})
	if errors.Is(err, domain.ErrDuplicateSale) {
		// Otra caja registró el mismo ID entre la verificación y la escritura.
		return uc.replay(ctx, saleID)
	}
	if err != nil {
		if domain.IsBusiness(err) {
			return nil, err
		}
		uc.log.Error().Err(err).Str("sale_id", saleID).Msg("registro de venta abortado por falla de persistencia")
		return nil, domain.Persistence("registrar venta", err)
	}

	uc.log.Info().
		Str("sale_id", sale.ID).
		Int64("location_id", sale.LocationID).
		Str("register_id", sale.RegisterID).
		Int("items", len(sale.Items)).
		Str("total", sale.TotalValue.StringFixed(2)).
		Msg("venta registrada")

	uc.publish(ctx, sale)
	return toReceipt(sale, false), nil
}

// commitSale reserva el ID, descuenta cada línea y guarda los ítems. Si algo falla,
// reintegra lo ya descontado en este intento antes de que el runner haga Rollback.
func (uc *RegisterSaleUseCase) commitSale(
	ctx context.Context,
	ledger repository.StockLedger,
	saleRepo repository.SaleRepository,
	sale *entity.Sale,
) (err error) {
	if err := saleRepo.Create(ctx, sale); err != nil {
		if errors.Is(err, domain.ErrDuplicateSale) {
			return err
		}
		return domain.Persistence("guardar venta", err)
	}

	applied := make([]*entity.SoldItem, 0, len(sale.Items))
	defer func() {
		if err != nil && len(applied) > 0 {
			uc.compensate(ctx, ledger, sale.ID, sale.LocationID, applied)
		}
	}()

	for _, item := range lockOrder(sale.Items) {
		ok, err := ledger.TryDecrement(ctx, sale.LocationID, item.ProductID, item.Quantity)
		if err != nil {
			return domain.Persistence("descontar stock", err)
		}
		if !ok {
			available, qerr := ledger.Quantity(ctx, sale.LocationID, item.ProductID)
			if qerr != nil {
				return domain.Persistence("consultar stock", qerr)
			}
			uc.log.Warn().
				Str("sale_id", sale.ID).
				Int64("product_id", item.ProductID).
				Int("requested", item.Quantity).
				Int("available", available).
				Msg("stock insuficiente")
			return &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
			}
		}
		applied = append(applied, item)
	}

	if err := saleRepo.CreateItems(ctx, sale.ID, sale.Items); err != nil {
		return domain.Persistence("guardar ítems", err)
	}
	return nil
}

// lockOrder copia las líneas ordenadas por producto. Todas las ventas toman los bloqueos de fila
// en el mismo orden, así dos canastas {A,B} y {B,A} no se bloquean mutuamente.
func lockOrder(items []*entity.SoldItem) []*entity.SoldItem {
	ordered := make([]*entity.SoldItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })
	return ordered
}

// compensate devuelve al libro las cantidades descontadas en el intento fallido.
// Usa un contexto no cancelable: la compensación debe correr aunque el pedido se haya abortado.
func (uc *RegisterSaleUseCase) compensate(ctx context.Context, ledger repository.StockLedger, saleID string, locationID int64, applied []*entity.SoldItem) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	for i := len(applied) - 1; i >= 0; i-- {
		item := applied[i]
		if err := ledger.Increment(cctx, locationID, item.ProductID, item.Quantity); err != nil {
			// En almacenamiento transaccional el Rollback revierte el descuento igualmente.
			uc.log.Warn().Err(err).
				Str("sale_id", saleID).
				Int64("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("compensación de stock fallida")
		}
	}
}

// replay devuelve el recibo de una venta ya persistida.
func (uc *RegisterSaleUseCase) replay(ctx context.Context, saleID string) (*dto.SaleReceiptResponse, error) {
	existing, err := uc.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return nil, domain.Persistence("recuperar venta existente", err)
	}
	if existing == nil {
		// Visible en Exists pero borrada antes de leerla.
		return nil, domain.Persistence("recuperar venta existente", fmt.Errorf("venta %s no disponible", saleID))
	}
	uc.log.Info().Str("sale_id", saleID).Msg("venta ya registrada, se devuelve el recibo original")
	return toReceipt(existing, true), nil
}

func (uc *RegisterSaleUseCase) resolveLocation(ctx context.Context, repo repository.StockLocationRepository, ref string) (*entity.StockLocation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = uc.cfg.DefaultLocation
	}
	var (
		location *entity.StockLocation
		err      error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		location, err = repo.GetByID(ctx, id)
	} else {
		location, err = repo.GetByName(ctx, ref)
	}
	if err != nil {
		return nil, domain.Persistence("resolver local", err)
	}
	if location == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocationNotFound, ref)
	}
	return location, nil
}

// resolveLines convierte la canasta en SoldItems. Consulta el catálogo solo para las líneas
// sin snapshot de nombre o precio.
func (uc *RegisterSaleUseCase) resolveLines(ctx context.Context, saleID string, lines []dto.SaleLineRequest) ([]*entity.SoldItem, error) {
	items := make([]*entity.SoldItem, 0, len(lines))
	for i, line := range lines {
		name := strings.TrimSpace(line.ProductName)
		var unit decimal.Decimal
		if line.UnitValue != nil {
			unit = *line.UnitValue
		}
		if name == "" || line.UnitValue == nil {
			product, err := uc.catalog.GetProduct(ctx, line.ProductID)
			if err != nil {
				return nil, domain.Persistence("consultar catálogo", err)
			}
			if product == nil {
				return nil, domain.Invalid(fmt.Sprintf("items[%d].product_id", i), "producto no encontrado en el catálogo")
			}
			if name == "" {
				name = product.Name
			}
			if line.UnitValue == nil {
				unit = product.SaleValue.Round(moneyScale)
			}
		}
		total := unit.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(moneyScale)
		if line.TotalValue != nil {
			total = *line.TotalValue
		}
		if err := checkMoney(fmt.Sprintf("items[%d].unit_value", i), &unit); err != nil {
			return nil, err
		}
		if err := checkMoney(fmt.Sprintf("items[%d].total_value", i), &total); err != nil {
			return nil, err
		}
		items = append(items, &entity.SoldItem{
			ID:          uuid.New().String(),
			SaleID:      saleID,
			LineNo:      i + 1,
			ProductID:   line.ProductID,
			ProductName: name,
			Quantity:    line.Quantity,
			UnitValue:   unit,
			TotalValue:  total,
		})
	}
	return items, nil
}

func (uc *RegisterSaleUseCase) buildSale(saleID string, caller entity.Caller, in dto.RegisterSaleRequest, items []*entity.SoldItem) *entity.Sale {
	operator := strings.TrimSpace(in.Operator)
	if operator == "" {
		operator = caller.Name
	}
	if operator == "" {
		operator = caller.UserID
	}
	registerID := strings.TrimSpace(in.RegisterID)
	if registerID == "" {
		registerID = caller.RegisterNumber
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalValue)
	}
	if in.TotalValue != nil {
		total = *in.TotalValue
	}

	change := in.Change
	if change == nil && in.ReceivedValue != nil && in.ReceivedValue.GreaterThanOrEqual(total) {
		c := in.ReceivedValue.Sub(total)
		change = &c
	}

	return &entity.Sale{
		ID:            saleID,
		RegisterID:    registerID,
		Operator:      operator,
		SoldAt:        uc.now().UTC(),
		TotalValue:    total,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		ReceivedValue: in.ReceivedValue,
		Change:        change,
		ClientID:      in.ClientID,
		Items:         items,
	}
}

func (uc *RegisterSaleUseCase) publish(ctx context.Context, sale *entity.Sale) {
	if uc.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := uc.publisher.PublishSaleRegistered(pctx, sale); err != nil {
		uc.log.Warn().Err(err).Str("sale_id", sale.ID).Msg("no se pudo publicar sale.registered")
	}
}

// validateRequest rechaza canastas mal formadas antes de tocar el almacenamiento.
func validateRequest(in dto.RegisterSaleRequest) error {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return domain.Invalid("id", "requerido")
	}
	if len(id) > maxSaleIDLength {
		return domain.Invalid("id", fmt.Sprintf("máximo %d caracteres", maxSaleIDLength))
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return domain.Invalid("payment_method", "requerido")
	}
	if len(in.Items) == 0 {
		return domain.Invalid("items", "la venta debe tener al menos un ítem")
	}
	if err := checkMoney("total_value", in.TotalValue); err != nil {
		return err
	}
	if err := checkMoney("received_value", in.ReceivedValue); err != nil {
		return err
	}
	if err := checkMoney("change", in.Change); err != nil {
		return err
	}
	for i, line := range in.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		if line.ProductID <= 0 {
			return domain.Invalid(field("product_id"), "requerido")
		}
		if line.Quantity <= 0 {
			return domain.Invalid(field("quantity"), "debe ser mayor que cero")
		}
		if line.Quantity > maxQuantity {
			return domain.Invalid(field("quantity"), fmt.Sprintf("máximo %d", maxQuantity))
		}
		if err := checkMoney(field("unit_value"), line.UnitValue); err != nil {
			return err
		}
		if err := checkMoney(field("total_value"), line.TotalValue); err != nil {
			return err
		}
	}
	return nil
}

// checkMoney exige un importe no negativo, con a lo sumo 2 decimales y 12 dígitos enteros. nil es válido.
func checkMoney(field string, d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	if d.IsNegative() {
		return domain.Invalid(field, "no puede ser negativo")
	}
	if !d.Equal(d.Truncate(moneyScale)) {
		return domain.Invalid(field, fmt.Sprintf("máximo %d decimales", moneyScale))
	}
	if d.GreaterThanOrEqual(maxMoney) {
		return domain.Invalid(field, "importe fuera de rango")
	}
	return nil
}
