package entity

import "time"

// Valores por defecto al aprovisionar un registro de inventario.
const (
	DefaultMinStockAlert = 5
)

// InventoryRecord es el stock de un producto dentro de su tienda. Identidad (StoreID, ProductID).
type InventoryRecord struct {
	StoreID          string
	ProductID        int64
	Quantity         int
	ReservedQuantity int // informativo; ningún flujo lo modifica todavía
	MinStockAlert    int
	AllowBackorder   bool
	TrackStock       bool
	UpdatedAt        time.Time
}

// NewInventoryRecord construye un registro con los valores por defecto (cantidad 0).
func NewInventoryRecord(storeID string, productID int64, now time.Time) *InventoryRecord {
	return &InventoryRecord{
		StoreID:       storeID,
		ProductID:     productID,
		Quantity:      0,
		MinStockAlert: DefaultMinStockAlert,
		TrackStock:    true,
		UpdatedAt:     now,
	}
}

// IsLow indica si la cantidad está en o bajo el umbral de alerta.
func (r *InventoryRecord) IsLow() bool {
	return r.TrackStock && r.Quantity <= r.MinStockAlert
}
