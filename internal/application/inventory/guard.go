package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// StoreContext identifica a quien llama: una tienda autenticada (StoreID del token)
// o un visitante anónimo acotado a un slug de tienda.
type StoreContext struct {
	StoreID   string
	UserID    string
	StoreSlug string
}

// Authenticated construye el contexto de un usuario del panel.
func Authenticated(storeID, userID string) StoreContext {
	return StoreContext{StoreID: storeID, UserID: userID}
}

// Public construye el contexto de un visitante de la vitrina.
func Public(storeSlug string) StoreContext {
	return StoreContext{StoreSlug: storeSlug}
}

// IsPublic indica si el llamador no trae identidad de tienda.
func (c StoreContext) IsPublic() bool { return c.StoreID == "" }

// Guard aplica el aislamiento entre tiendas: resuelve la tienda antes de tocar productos o
// inventario y reporta "no es de esta tienda" igual que "no existe".
type Guard struct {
	stores   StoreResolver
	modules  ModuleChecker
	products repository.ProductRepository
}

// NewGuard construye el guard de tenant.
func NewGuard(stores StoreResolver, modules ModuleChecker, products repository.ProductRepository) *Guard {
	return &Guard{stores: stores, modules: modules, products: products}
}

// ResolveSlug devuelve la tienda activa del slug o ErrNotFoundInStore.
func (g *Guard) ResolveSlug(ctx context.Context, slug string) (*entity.Store, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, domain.ErrNotFoundInStore
	}
	store, err := g.stores.ResolveSlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve store slug: %w", err)
	}
	if store == nil {
		return nil, domain.ErrNotFoundInStore
	}
	return store, nil
}

// ProductInStore devuelve el producto solo si pertenece a la tienda.
func (g *Guard) ProductInStore(ctx context.Context, storeID string, productID int64) (*entity.Product, error) {
	return productInStore(ctx, g.products, storeID, productID)
}

// TrackingEnabled consulta si el subsistema de stock aplica a la tienda.
func (g *Guard) TrackingEnabled(ctx context.Context, storeID string) (bool, error) {
	var (
		enabled bool
		err     error
	)
	if tracker, ok := g.modules.(StockTracker); ok {
		enabled, err = tracker.StockTrackingEnabled(ctx, storeID)
	} else {
		enabled, err = g.modules.HasActiveModule(ctx, storeID, entity.ModuleStock)
	}
	if err != nil {
		return false, fmt.Errorf("check stock module: %w", err)
	}
	return enabled, nil
}

// productInStore se usa también con el ProductRepository atado a una transacción.
func productInStore(ctx context.Context, products repository.ProductRepository, storeID string, productID int64) (*entity.Product, error) {
	if storeID == "" || productID <= 0 {
		return nil, domain.ErrNotFoundInStore
	}
	p, err := products.GetInStore(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.StoreID != storeID {
		return nil, domain.ErrNotFoundInStore
	}
	return p, nil
}
