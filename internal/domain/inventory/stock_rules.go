package inventory

import (
	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
)

// ApplySale valida y calcula la cantidad resultante de vender qty unidades (servicio de dominio).
// No modifica el registro. Sin backorder la cantidad nunca queda negativa.
func ApplySale(rec *entity.InventoryRecord, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidInput
	}
	if rec.Quantity < qty && !rec.AllowBackorder {
		return 0, domain.NewInsufficientStock(max(rec.Quantity, 0))
	}
	return rec.Quantity - qty, nil
}

// ApplyDelta calcula NuevaCantidad = CantidadActual + delta para un ajuste manual.
// Si el resultado es negativo y no se permite backorder devuelve stock insuficiente.
func ApplyDelta(rec *entity.InventoryRecord, delta int) (int, error) {
	if delta == 0 {
		return 0, domain.ErrInvalidInput
	}
	next := rec.Quantity + delta
	if next < 0 && !rec.AllowBackorder {
		return 0, domain.NewInsufficientStock(max(rec.Quantity, 0))
	}
	return next, nil
}
