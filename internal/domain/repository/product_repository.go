package repository

import (
	"context"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
)

// ProductRepository define el puerto de lectura de productos. Toda consulta va filtrada por tienda:
// un producto de otra tienda se comporta igual que uno inexistente (nil, nil).
type ProductRepository interface {
	GetInStore(ctx context.Context, storeID string, productID int64) (*entity.Product, error)
	ListByStore(ctx context.Context, storeID string) ([]*entity.Product, error)
}
