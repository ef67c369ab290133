package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de una tienda.
// Solo se lee desde el motor de inventario; el CRUD vive en el panel externo.
type Product struct {
	ID        int64
	StoreID   string
	SKU       string
	Name      string
	Price     decimal.Decimal // precio de venta
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
