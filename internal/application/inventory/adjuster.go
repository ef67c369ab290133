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

	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/inventory"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

const maxReasonLength = 255

// AdjustInput entrada de un ajuste manual desde el panel.
type AdjustInput struct {
	StoreID   string
	UserID    string
	ProductID int64
	Delta     int
	Reason    string
}

// AdjustStockUseCase aplica ajustes manuales con bloqueo de fila y entrada de ledger en la misma transacción.
type AdjustStockUseCase struct {
	txRunner  TxRunner
	guard     *Guard
	publisher MovementPublisher
	log       zerolog.Logger
}

// NewAdjustStockUseCase construye el caso de uso. publisher puede ser nil.
func NewAdjustStockUseCase(txRunner TxRunner, guard *Guard, publisher MovementPublisher, log zerolog.Logger) *AdjustStockUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &AdjustStockUseCase{txRunner: txRunner, guard: guard, publisher: publisher, log: log}
}

// AdjustStock suma delta a la cantidad del producto y devuelve la cantidad resultante.
// Un producto ajeno o inexistente responde domain.ErrUnauthorized (misma forma en ambos casos).
func (uc *AdjustStockUseCase) AdjustStock(ctx context.Context, in AdjustInput) (int, error) {
	ctx, span := tracer.Start(ctx, "inventory.AdjustStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.id", in.StoreID),
		attribute.Int64("product.id", in.ProductID),
		attribute.Int("delta", in.Delta),
	)

	if in.StoreID == "" || in.UserID == "" {
		return 0, domain.ErrUnauthorized
	}
	if in.Delta == 0 || in.ProductID <= 0 {
		return 0, domain.ErrInvalidInput
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = entity.DefaultAdjustReason
	}
	if len(reason) > maxReasonLength {
		return 0, domain.ErrInvalidInput
	}

	enabled, err := uc.guard.TrackingEnabled(ctx, in.StoreID)
	if err != nil {
		return 0, err
	}
	if !enabled {
		return 0, domain.ErrStockTrackingDisabled
	}
	if _, err := uc.guard.ProductInStore(ctx, in.StoreID, in.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFoundInStore) {
			return 0, domain.ErrUnauthorized
		}
		return 0, err
	}

	var (
		entry   *entity.LedgerEntry
		minimum int
	)
	err = uc.txRunner.Run(ctx, func(
		invRepo repository.InventoryRepository,
		ledgerRepo repository.LedgerRepository,
		_ repository.ProductRepository,
	) error {
		// Bloquea la fila; si no existe se aprovisiona dentro de la misma tx y se vuelve a bloquear
		rec, err := invRepo.GetForUpdate(ctx, in.StoreID, in.ProductID)
		if err != nil {
			return err
		}
		now := time.Now()
		if rec == nil {
			if err := invRepo.Provision(ctx, entity.NewInventoryRecord(in.StoreID, in.ProductID, now)); err != nil {
				return err
			}
			if rec, err = invRepo.GetForUpdate(ctx, in.StoreID, in.ProductID); err != nil {
				return err
			}
			if rec == nil {
				return domain.ErrUnauthorized
			}
		}
		next, err := inventory.ApplyDelta(rec, in.Delta)
		if err != nil {
			return err
		}
		if err := invRepo.UpdateQuantity(ctx, in.StoreID, in.ProductID, next); err != nil {
			return err
		}
		e := &entity.LedgerEntry{
			ID:                uuid.New().String(),
			StoreID:           in.StoreID,
			ProductID:         in.ProductID,
			Delta:             in.Delta,
			ResultingQuantity: next,
			Reason:            reason,
			Actor:             in.UserID,
			CreatedAt:         now,
		}
		if err := ledgerRepo.Append(ctx, e); err != nil {
			return err
		}
		entry, minimum = e, rec.MinStockAlert
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	uc.log.Info().
		Str("store_id", in.StoreID).
		Int64("product_id", in.ProductID).
		Int("delta", in.Delta).
		Int("new_quantity", entry.ResultingQuantity).
		Str("actor", in.UserID).
		Msg("ajuste de stock aplicado")
	publishCommitted(ctx, uc.publisher, uc.log, MovementEvent{
		Entry:         *entry,
		MinStockAlert: minimum,
		LowStock:      entry.ResultingQuantity <= minimum,
	})
	return entry.ResultingQuantity, nil
}

// publishCommitted notifica movimientos ya confirmados; un fallo solo se registra.
func publishCommitted(ctx context.Context, p MovementPublisher, log zerolog.Logger, events ...MovementEvent) {
	if len(events) == 0 {
		return
	}
	if err := p.Publish(ctx, events...); err != nil {
		log.Warn().Err(err).Int("events", len(events)).Msg("no se pudieron publicar movimientos de stock")
	}
}
