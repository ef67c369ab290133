package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Códigos de error expuestos al storefront y al panel (mismo formato en resultados por ítem y en HTTP).
const (
	CodeNotFoundInStore   = "NOT_FOUND_IN_STORE"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidInput      = "VALIDATION"
	CodeInternal          = "INTERNAL"
)

// CartSaleItemRequest ítem del carrito.
type CartSaleItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartSaleRequest body para POST /api/public/stores/:slug/cart-sales.
type CartSaleRequest struct {
	StoreSlug      string                `json:"store_slug,omitempty"`
	OrderReference string                `json:"order_reference"`
	Items          []CartSaleItemRequest `json:"items"`
}

// CartSaleItemResult resultado de un ítem, en el mismo orden del request.
type CartSaleItemResult struct {
	ProductID   int64  `json:"product_id"`
	Success     bool   `json:"success"`
	NewQuantity *int   `json:"new_quantity,omitempty"`
	Available   *int   `json:"available,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CartSaleResult Success es verdadero solo si todos los ítems fueron exitosos.
type CartSaleResult struct {
	Success bool                 `json:"success"`
	Results []CartSaleItemResult `json:"results"`
}

// AdjustStockRequest body para POST /api/inventory/:product_id/adjust.
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// AdjustStockResponse cantidad resultante del ajuste.
type AdjustStockResponse struct {
	ProductID   int64 `json:"product_id"`
	NewQuantity int   `json:"new_quantity"`
}

// InventoryResponse registro de inventario para el panel.
type InventoryResponse struct {
	ProductID        int64     `json:"product_id"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	MinStockAlert    int       `json:"min_stock_alert"`
	AllowBackorder   bool      `json:"allow_backorder"`
	TrackStock       bool      `json:"track_stock"`
	LowStock         bool      `json:"low_stock"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PublicInventoryResponse vista pública mínima del stock de un producto.
type PublicInventoryResponse struct {
	ProductID      int64 `json:"product_id"`
	Quantity       int   `json:"quantity"`
	AllowBackorder bool  `json:"allow_backorder"`
	TrackStock     bool  `json:"track_stock"`
	InStock        bool  `json:"in_stock"`
}

// LowStockItemDTO producto en o bajo su umbral de alerta.
type LowStockItemDTO struct {
	ProductID     int64  `json:"product_id"`
	SKU           string `json:"sku"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity"`
	MinStockAlert int    `json:"min_stock_alert"`
	Deficit       int    `json:"deficit"` // MinStockAlert - Quantity
}

// LedgerEntryDTO entrada del historial de stock.
type LedgerEntryDTO struct {
	ID                string    `json:"id"`
	ProductID         int64     `json:"product_id"`
	Delta             int       `json:"delta"`
	ResultingQuantity int       `json:"resulting_quantity"`
	Reason            string    `json:"reason"`
	Actor             string    `json:"actor"`
	OrderReference    string    `json:"order_reference,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ProductInventoryDTO producto de la tienda con su inventario (nil si aún no fue aprovisionado).
type ProductInventoryDTO struct {
	ProductID int64              `json:"product_id"`
	SKU       string             `json:"sku"`
	Name      string             `json:"name"`
	Price     decimal.Decimal    `json:"price"`
	Active    bool               `json:"active"`
	Inventory *InventoryResponse `json:"inventory,omitempty"`
}

// InventoryListResponse listado de inventario con totales.
type InventoryListResponse struct {
	Items      []ProductInventoryDTO `json:"items"`
	TotalUnits int                   `json:"total_units"`
	StockValue decimal.Decimal       `json:"stock_value"` // suma de precio * cantidad (solo cantidades positivas)
}
