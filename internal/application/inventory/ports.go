package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: registro + ledger se confirman o se descartan juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		invRepo repository.InventoryRepository,
		ledgerRepo repository.LedgerRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// StoreResolver resuelve tiendas por slug público o por id (lo implementa *usecase.StoreUseCase).
type StoreResolver interface {
	ResolveSlug(ctx context.Context, slug string) (*entity.Store, error)
	GetByID(ctx context.Context, id string) (*entity.Store, error)
}

// ModuleChecker es la frontera con la configuración de la tienda (isStockTrackingEnabled).
// Lo implementa *usecase.ModuleService.
type ModuleChecker interface {
	HasActiveModule(ctx context.Context, storeID, moduleName string) (bool, error)
}

// StockTracker decide por sí mismo si el control de stock aplica a la tienda
// (estado de la tienda más módulo). Si el ModuleChecker lo implementa, el Guard lo prefiere.
type StockTracker interface {
	StockTrackingEnabled(ctx context.Context, storeID string) (bool, error)
}

// MovementEvent notificación de una entrada de ledger ya confirmada.
type MovementEvent struct {
	Entry         entity.LedgerEntry
	MinStockAlert int
	LowStock      bool
}

// MovementPublisher publica movimientos después del commit (best effort, nunca dentro de la tx).
type MovementPublisher interface {
	Publish(ctx context.Context, events ...MovementEvent) error
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...MovementEvent) error { return nil }

// LowStockReportGenerator genera el reporte PDF de stock bajo.
type LowStockReportGenerator interface {
	GenerateLowStockPDF(ctx context.Context, store *entity.Store, items []dto.LowStockItemDTO, generatedAt time.Time) ([]byte, error)
}
