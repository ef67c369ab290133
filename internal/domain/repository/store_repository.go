package repository

import (
	"context"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
)

// StoreRepository define el puerto de lectura de tiendas (DIP).
// Las tiendas se administran fuera del motor de inventario; aquí solo se resuelven.
type StoreRepository interface {
	// GetBySlug devuelve (nil, nil) si no existe una tienda activa con ese slug.
	GetBySlug(ctx context.Context, slug string) (*entity.Store, error)
	GetByID(ctx context.Context, id string) (*entity.Store, error)
	// HasActiveModule informa si la tienda tiene el módulo activo y sin vencer.
	HasActiveModule(ctx context.Context, storeID, moduleName string) (bool, error)
}
