package entity

import (
	"strings"
	"time"
)

// LedgerEntry registra un cambio de cantidad (inmutable). Una entrada por cada cambio confirmado.
type LedgerEntry struct {
	ID                string
	StoreID           string
	ProductID         int64
	Delta             int // positivo entrada, negativo salida
	ResultingQuantity int
	Reason            string
	Actor             string // user id o ActorPublic
	OrderReference    string // vacío en ajustes manuales
	CreatedAt         time.Time
}

// SaleReason arma el motivo de una venta pública a partir de la referencia del pedido.
// Sin referencia el motivo queda en "Venta Pública".
func SaleReason(orderReference string) string {
	ref := strings.TrimSpace(orderReference)
	if ref == "" {
		return saleReasonPrefix
	}
	return saleReasonPrefix + " - " + ref
}

const saleReasonPrefix = "Venta Pública"

// DefaultAdjustReason se usa cuando el ajuste manual no trae motivo.
const DefaultAdjustReason = "Ajuste manual"
