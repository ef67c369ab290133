package dto

// Límites de paginación para el historial de stock.
const (
	DefaultLogLimit = 50
	MaxLogLimit     = 200
)

// ClampLimit aplica el valor por defecto si limit es cero o negativo y el máximo permitido.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLogLimit
	}
	if limit > MaxLogLimit {
		return MaxLogLimit
	}
	return limit
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
