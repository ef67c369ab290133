package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrNotFoundInStore       = errors.New("producto no encontrado en esta tienda")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrUnauthorized          = errors.New("no autorizado")
	ErrForbidden             = errors.New("acceso denegado")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrStockTrackingDisabled = errors.New("control de stock desactivado para la tienda")
)

// InsufficientStockError detalla las unidades disponibles al rechazar una venta o ajuste.
// errors.Is(err, ErrInsufficientStock) sigue siendo verdadero.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente, quedan %d unidades", e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NewInsufficientStock construye el error con la cantidad disponible.
func NewInsufficientStock(available int) error {
	return &InsufficientStockError{Available: available}
}

// AvailableFrom extrae la cantidad disponible de un error de stock insuficiente.
func AvailableFrom(err error) (int, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise.Available, true
	}
	return 0, false
}
