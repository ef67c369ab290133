package repository

import (
	"context"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
)

// LowStockItem resultado crudo para un producto en o bajo su umbral de alerta.
type LowStockItem struct {
	ProductID     int64
	SKU           string
	ProductName   string
	Quantity      int
	MinStockAlert int
}

// InventoryWithProduct une un producto de la tienda con su registro de inventario (nil si no existe).
type InventoryWithProduct struct {
	Product *entity.Product
	Record  *entity.InventoryRecord
}

// InventoryRepository define el puerto para consultar/actualizar stock por tienda+producto.
// Usado dentro de transacciones para garantizar consistencia.
type InventoryRepository interface {
	// Get devuelve (nil, nil) si no hay registro o el producto no pertenece a la tienda.
	Get(ctx context.Context, storeID string, productID int64) (*entity.InventoryRecord, error)
	// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, storeID string, productID int64) (*entity.InventoryRecord, error)
	// Provision crea el registro con valores por defecto si no existe; no lo sobrescribe si ya existe.
	Provision(ctx context.Context, rec *entity.InventoryRecord) error
	UpdateQuantity(ctx context.Context, storeID string, productID int64, quantity int) error

	ListLowStock(ctx context.Context, storeID string) ([]LowStockItem, error)
	ListWithProducts(ctx context.Context, storeID string) ([]InventoryWithProduct, error)
}
