package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `p.id, p.store_id, p.sku, p.name, p.price, p.active, p.created_at, p.updated_at`

// GetInStore obtiene un producto solo si pertenece a la tienda.
func (r *ProductRepo) GetInStore(ctx context.Context, storeID string, productID int64) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.store_id = $1 AND p.id = $2`
	p, err := scanProduct(r.q.QueryRow(ctx, query, storeID, productID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product in store: %w", err)
	}
	return p, nil
}

// ListByStore lista los productos de la tienda ordenados por nombre.
func (r *ProductRepo) ListByStore(ctx context.Context, storeID string) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.store_id = $1 ORDER BY p.name, p.id`
	rows, err := r.q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	if err := row.Scan(&p.ID, &p.StoreID, &p.SKU, &p.Name, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
