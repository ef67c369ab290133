package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// AccessorUseCase lecturas de un registro de inventario para el panel y la vitrina.
type AccessorUseCase struct {
	guard   *Guard
	invRepo repository.InventoryRepository
}

// NewAccessorUseCase construye el caso de uso de lectura.
func NewAccessorUseCase(guard *Guard, invRepo repository.InventoryRepository) *AccessorUseCase {
	return &AccessorUseCase{guard: guard, invRepo: invRepo}
}

// GetInventory devuelve el registro del producto para quien llama.
//
// Autenticado: si el producto es de la tienda y no tiene registro, se aprovisiona con valores por defecto.
// Con el control de stock desactivado devuelve domain.ErrNotFound (el producto no tiene restricción).
// Público: nunca aprovisiona. Tienda inexistente, módulo inactivo, producto ajeno o sin registro
// se reportan como domain.ErrNotFoundInStore; los fallos de la capa de datos se propagan envueltos.
func (uc *AccessorUseCase) GetInventory(ctx context.Context, productID int64, caller StoreContext) (*entity.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "inventory.GetInventory")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID), attribute.Bool("caller.public", caller.IsPublic()))

	if caller.IsPublic() {
		return uc.getPublic(ctx, productID, caller.StoreSlug)
	}

	enabled, err := uc.guard.TrackingEnabled(ctx, caller.StoreID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, domain.ErrNotFound
	}
	if _, err := uc.guard.ProductInStore(ctx, caller.StoreID, productID); err != nil {
		return nil, err
	}
	rec, err := uc.invRepo.Get(ctx, caller.StoreID, productID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	return uc.ProvisionInventory(ctx, caller.StoreID, productID)
}

func (uc *AccessorUseCase) getPublic(ctx context.Context, productID int64, slug string) (*entity.InventoryRecord, error) {
	store, err := uc.guard.ResolveSlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	enabled, err := uc.guard.TrackingEnabled(ctx, store.ID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, domain.ErrNotFoundInStore
	}
	if _, err := uc.guard.ProductInStore(ctx, store.ID, productID); err != nil {
		if errors.Is(err, domain.ErrNotFoundInStore) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	rec, err := uc.invRepo.Get(ctx, store.ID, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrNotFoundInStore
	}
	return rec, nil
}

// ProvisionInventory crea el registro por defecto (cantidad 0, alerta 5, sin backorder, con control)
// si no existe y devuelve el registro vigente. No escribe en el ledger.
// El llamador debe haber verificado que el producto pertenece a la tienda.
func (uc *AccessorUseCase) ProvisionInventory(ctx context.Context, storeID string, productID int64) (*entity.InventoryRecord, error) {
	if err := uc.invRepo.Provision(ctx, entity.NewInventoryRecord(storeID, productID, time.Now())); err != nil {
		return nil, fmt.Errorf("provision inventory: %w", err)
	}
	rec, err := uc.invRepo.Get(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFoundInStore
	}
	return rec, nil
}
