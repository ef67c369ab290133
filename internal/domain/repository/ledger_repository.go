package repository

import (
	"context"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
)

// LedgerRepository define el puerto de persistencia del ledger de stock (solo inserción).
type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	// ListByProduct devuelve las entradas más recientes primero.
	ListByProduct(ctx context.Context, storeID string, productID int64, limit int) ([]*entity.LedgerEntry, error)
}
