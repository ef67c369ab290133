package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación del ledger de stock sobre PostgreSQL (solo inserción).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append inserta una entrada. order_reference vacío se guarda como NULL.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	query := `
		INSERT INTO stock_ledger (id, store_id, product_id, delta, resulting_quantity, reason, actor, order_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.StoreID, e.ProductID, e.Delta, e.ResultingQuantity, e.Reason, e.Actor, e.OrderReference, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert ledger entry: id duplicado %s: %w", e.ID, err)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByProduct entradas del producto, más recientes primero.
func (r *LedgerRepo) ListByProduct(ctx context.Context, storeID string, productID int64, limit int) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, store_id, product_id, delta, resulting_quantity, reason, actor,
		       COALESCE(order_reference, ''), created_at
		  FROM stock_ledger
		 WHERE store_id = $1 AND product_id = $2
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $3`
	rows, err := r.q.Query(ctx, query, storeID, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var list []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.StoreID, &e.ProductID, &e.Delta, &e.ResultingQuantity, &e.Reason, &e.Actor,
			&e.OrderReference, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
