package entity

import "time"

// Store representa una tienda/tenant del constructor de vitrinas (multi-tenant).
// Cada tienda tiene su propio catálogo e inventario, aislados de las demás.
type Store struct {
	ID            string
	Slug          string // identificador público normalizado, ej. "baby-sweet"
	Name          string
	WhatsAppPhone string // destino de los pedidos
	Status        string // StoreActive o StoreSuspended
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Estados de una tienda.
const (
	StoreActive    = "active"
	StoreSuspended = "suspended"
)

// IsActive indica si la tienda puede vender.
func (s *Store) IsActive() bool { return s != nil && s.Status == StoreActive }

// Módulos disponibles por tienda (deben coincidir con el CHECK de la tabla store_modules).
const (
	ModuleStock   = "stock"
	ModuleCatalog = "catalog"
)

// StoreModule representa la activación de un módulo en una tienda.
type StoreModule struct {
	ID          string
	StoreID     string
	ModuleName  string // ver constantes Module*
	IsActive    bool
	ActivatedAt time.Time
	ExpiresAt   *time.Time // nil = sin vencimiento
}
