package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// ModuleService verifica qué módulos tiene activos una tienda.
// Es el único punto de la aplicación que conoce la lógica de activación de módulos.
type ModuleService struct {
	storeRepo repository.StoreRepository
}

// NewModuleService construye el servicio de módulos.
func NewModuleService(storeRepo repository.StoreRepository) *ModuleService {
	return &ModuleService{storeRepo: storeRepo}
}

// HasActiveModule informa si la tienda tiene el módulo activo y sin vencer.
// Devuelve false (sin error) si la tienda no tiene el módulo.
// Devuelve error solo ante fallos de infraestructura (DB caída, timeout, etc.).
func (s *ModuleService) HasActiveModule(ctx context.Context, storeID, moduleName string) (bool, error) {
	if storeID == "" || moduleName == "" {
		return false, fmt.Errorf("module: storeID y moduleName son obligatorios")
	}
	return s.storeRepo.HasActiveModule(ctx, storeID, moduleName)
}

// StockTrackingEnabled informa si el control de stock aplica a la tienda: debe existir,
// estar activa y tener el módulo de stock vigente. Una tienda suspendida o desconocida
// se trata como sin control (false, nil); solo los fallos de la DB devuelven error.
func (s *ModuleService) StockTrackingEnabled(ctx context.Context, storeID string) (bool, error) {
	if storeID == "" {
		return false, nil
	}
	store, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return false, fmt.Errorf("module: get store: %w", err)
	}
	if !store.IsActive() {
		return false, nil
	}
	return s.storeRepo.HasActiveModule(ctx, storeID, entity.ModuleStock)
}
