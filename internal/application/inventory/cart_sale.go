package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/inventory"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// Mensajes devueltos al storefront por ítem.
const (
	msgInvalidQuantity = "la cantidad debe ser mayor a cero"
	msgEmptyCart       = "el carrito no tiene ítems"
	msgInternal        = "no se pudo procesar el ítem, intenta de nuevo"
	msgCancelled       = "la operación fue cancelada antes de procesar el ítem"
)

// SaleConfig límites de tiempo del procesamiento de carritos.
type SaleConfig struct {
	// ItemTimeout acota cada ítem (incluye esperas por bloqueo y reintentos). 0 = sin límite propio.
	ItemTimeout time.Duration
}

// CartSaleUseCase descuenta el stock de un carrito público ítem por ítem.
// Cada ítem es su propia transacción: un fallo no revierte los ítems ya confirmados.
type CartSaleUseCase struct {
	txRunner  TxRunner
	guard     *Guard
	publisher MovementPublisher
	cfg       SaleConfig
	log       zerolog.Logger
}

// NewCartSaleUseCase construye el caso de uso. publisher puede ser nil.
func NewCartSaleUseCase(txRunner TxRunner, guard *Guard, publisher MovementPublisher, cfg SaleConfig, log zerolog.Logger) *CartSaleUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &CartSaleUseCase{txRunner: txRunner, guard: guard, publisher: publisher, cfg: cfg, log: log}
}

// ProcessCartSale procesa los ítems en el orden recibido y devuelve un resultado por ítem.
// Nunca devuelve error: toda falla queda descrita en el resultado.
func (uc *CartSaleUseCase) ProcessCartSale(ctx context.Context, req dto.CartSaleRequest) dto.CartSaleResult {
	ctx, span := tracer.Start(ctx, "inventory.ProcessCartSale")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.slug", req.StoreSlug),
		attribute.String("order.reference", req.OrderReference),
		attribute.Int("cart.items", len(req.Items)),
	)

	logger := uc.log.With().Str("store_slug", req.StoreSlug).Str("order_reference", req.OrderReference).Logger()

	if len(req.Items) == 0 {
		return dto.CartSaleResult{Results: []dto.CartSaleItemResult{failure(0, dto.CodeInvalidInput, msgEmptyCart)}}
	}

	store, err := uc.guard.ResolveSlug(ctx, strings.TrimSpace(req.StoreSlug))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFoundInStore) {
			logger.Error().Err(err).Msg("no se pudo resolver la tienda")
			span.RecordError(err)
			return dto.CartSaleResult{Results: []dto.CartSaleItemResult{failure(0, dto.CodeInternal, msgInternal)}}
		}
		return dto.CartSaleResult{Results: []dto.CartSaleItemResult{failure(0, dto.CodeNotFoundInStore, domain.ErrNotFoundInStore.Error())}}
	}
	logger = logger.With().Str("store_id", store.ID).Logger()

	enabled, err := uc.guard.TrackingEnabled(ctx, store.ID)
	if err != nil {
		logger.Error().Err(err).Msg("no se pudo consultar el módulo de stock")
		results := make([]dto.CartSaleItemResult, len(req.Items))
		for i, item := range req.Items {
			results[i] = failure(item.ProductID, dto.CodeInternal, msgInternal)
		}
		return dto.CartSaleResult{Results: results}
	}

	out := dto.CartSaleResult{Success: true, Results: make([]dto.CartSaleItemResult, 0, len(req.Items))}
	var events []MovementEvent
	for _, item := range req.Items {
		res, ev := uc.processItem(ctx, store, enabled, req.OrderReference, item, logger)
		if ev != nil {
			events = append(events, *ev)
		}
		if !res.Success {
			out.Success = false
		}
		out.Results = append(out.Results, res)
	}

	if !out.Success {
		span.SetStatus(codes.Error, "carrito con ítems fallidos")
	}
	logger.Info().
		Bool("success", out.Success).
		Int("items", len(req.Items)).
		Int("committed", len(events)).
		Msg("venta pública procesada")

	// El pedido ya quedó confirmado; la publicación no depende de que el cliente siga conectado
	publishCommitted(context.WithoutCancel(ctx), uc.publisher, logger, events...)
	return out
}

// processItem ejecuta la transacción corta de un ítem. Devuelve el evento a publicar si hubo mutación.
func (uc *CartSaleUseCase) processItem(
	ctx context.Context,
	store *entity.Store,
	trackingEnabled bool,
	orderReference string,
	item dto.CartSaleItemRequest,
	logger zerolog.Logger,
) (dto.CartSaleItemResult, *MovementEvent) {
	if item.Quantity <= 0 {
		return failure(item.ProductID, dto.CodeInvalidInput, msgInvalidQuantity), nil
	}
	if ctx.Err() != nil {
		return failure(item.ProductID, dto.CodeInternal, msgCancelled), nil
	}

	ctx, span := tracer.Start(ctx, "inventory.SaleItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", item.ProductID), attribute.Int("quantity", item.Quantity))

	if uc.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.ItemTimeout)
		defer cancel()
	}

	var (
		newQty *int
		event  *MovementEvent
	)
	err := uc.txRunner.Run(ctx, func(
		invRepo repository.InventoryRepository,
		ledgerRepo repository.LedgerRepository,
		productRepo repository.ProductRepository,
	) error {
		newQty, event = nil, nil
		if _, err := productInStore(ctx, productRepo, store.ID, item.ProductID); err != nil {
			return err
		}
		// Sin control de stock el ítem se acepta sin tocar inventario
		if !trackingEnabled {
			return nil
		}
		rec, err := invRepo.GetForUpdate(ctx, store.ID, item.ProductID)
		if err != nil {
			return err
		}
		if rec == nil || !rec.TrackStock {
			return nil
		}
		next, err := inventory.ApplySale(rec, item.Quantity)
		if err != nil {
			return err
		}
		if err := invRepo.UpdateQuantity(ctx, store.ID, item.ProductID, next); err != nil {
			return err
		}
		entry := &entity.LedgerEntry{
			ID:                uuid.New().String(),
			StoreID:           store.ID,
			ProductID:         item.ProductID,
			Delta:             -item.Quantity,
			ResultingQuantity: next,
			Reason:            entity.SaleReason(orderReference),
			Actor:             entity.ActorPublic,
			OrderReference:    orderReference,
			CreatedAt:         time.Now(),
		}
		if err := ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}
		newQty = &next
		event = &MovementEvent{Entry: *entry, MinStockAlert: rec.MinStockAlert, LowStock: next <= rec.MinStockAlert}
		return nil
	})
	if err != nil {
		return itemFailure(item.ProductID, err, span, logger), nil
	}
	return dto.CartSaleItemResult{ProductID: item.ProductID, Success: true, NewQuantity: newQty}, event
}

func itemFailure(productID int64, err error, span trace.Span, logger zerolog.Logger) dto.CartSaleItemResult {
	switch {
	case errors.Is(err, domain.ErrNotFoundInStore):
		return failure(productID, dto.CodeNotFoundInStore, domain.ErrNotFoundInStore.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		available, _ := domain.AvailableFrom(err)
		res := failure(productID, dto.CodeInsufficientStock, err.Error())
		res.Available = &available
		return res
	case errors.Is(err, domain.ErrInvalidInput):
		return failure(productID, dto.CodeInvalidInput, msgInvalidQuantity)
	default:
		span.RecordError(err)
		logger.Error().Err(err).Int64("product_id", productID).Msg("fallo interno procesando ítem")
		return failure(productID, dto.CodeInternal, msgInternal)
	}
}

func failure(productID int64, code, msg string) dto.CartSaleItemResult {
	return dto.CartSaleItemResult{ProductID: productID, ErrorCode: code, Error: msg}
}
