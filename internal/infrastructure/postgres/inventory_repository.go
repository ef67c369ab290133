package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo implementación de InventoryRepository sobre PostgreSQL (usable con pool o tx).
// Todas las lecturas pasan por products para que un producto ajeno se vea igual que uno inexistente.
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador de inventario. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const selectInventory = `
	SELECT i.store_id, i.product_id, i.quantity, i.reserved_quantity, i.min_stock_alert,
	       i.allow_backorder, i.track_stock, i.updated_at
	  FROM inventory i
	  JOIN products p ON p.id = i.product_id AND p.store_id = i.store_id
	 WHERE i.store_id = $1 AND i.product_id = $2`

// Get obtiene el registro sin bloquear.
func (r *InventoryRepo) Get(ctx context.Context, storeID string, productID int64) (*entity.InventoryRecord, error) {
	rec, err := scanInventory(r.q.QueryRow(ctx, selectInventory, storeID, productID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return rec, nil
}

// GetForUpdate obtiene el registro y bloquea la fila para update (SELECT FOR UPDATE).
// Solo bloquea inventory; products no se toca.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, storeID string, productID int64) (*entity.InventoryRecord, error) {
	rec, err := scanInventory(r.q.QueryRow(ctx, selectInventory+` FOR UPDATE OF i`, storeID, productID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory for update: %w", err)
	}
	return rec, nil
}

// Provision inserta el registro por defecto; si ya existe no hace nada (seguro ante carreras).
// El INSERT ... SELECT solo inserta si el producto pertenece a la tienda.
func (r *InventoryRepo) Provision(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory (store_id, product_id, quantity, reserved_quantity, min_stock_alert,
		                       allow_backorder, track_stock, updated_at)
		SELECT p.store_id, p.id, $3, $4, $5, $6, $7, $8
		  FROM products p
		 WHERE p.store_id = $1 AND p.id = $2
		ON CONFLICT (store_id, product_id) DO NOTHING`
	_, err := r.q.Exec(ctx, query,
		rec.StoreID, rec.ProductID, rec.Quantity, rec.ReservedQuantity, rec.MinStockAlert,
		rec.AllowBackorder, rec.TrackStock, rec.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFoundInStore
		}
		return fmt.Errorf("provision inventory: %w", err)
	}
	return nil
}

// UpdateQuantity fija la cantidad. Se espera la fila ya bloqueada por GetForUpdate.
func (r *InventoryRepo) UpdateQuantity(ctx context.Context, storeID string, productID int64, quantity int) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE inventory SET quantity = $3, updated_at = $4 WHERE store_id = $1 AND product_id = $2`,
		storeID, productID, quantity, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update inventory quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFoundInStore
	}
	return nil
}

// ListLowStock productos con control de stock en o bajo su alerta, mayor déficit primero.
func (r *InventoryRepo) ListLowStock(ctx context.Context, storeID string) ([]repository.LowStockItem, error) {
	query := `
		SELECT p.id, p.sku, p.name, i.quantity, i.min_stock_alert
		  FROM inventory i
		  JOIN products p ON p.id = i.product_id AND p.store_id = i.store_id
		 WHERE i.store_id = $1
		   AND i.track_stock = true
		   AND i.quantity <= i.min_stock_alert
		 ORDER BY (i.min_stock_alert - i.quantity) DESC, p.name`
	rows, err := r.q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	var list []repository.LowStockItem
	for rows.Next() {
		var it repository.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.ProductName, &it.Quantity, &it.MinStockAlert); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// ListWithProducts todos los productos de la tienda con su registro (LEFT JOIN).
func (r *InventoryRepo) ListWithProducts(ctx context.Context, storeID string) ([]repository.InventoryWithProduct, error) {
	query := `
		SELECT ` + productColumns + `,
		       i.quantity, i.reserved_quantity, i.min_stock_alert, i.allow_backorder, i.track_stock, i.updated_at
		  FROM products p
		  LEFT JOIN inventory i ON i.product_id = p.id AND i.store_id = p.store_id
		 WHERE p.store_id = $1
		 ORDER BY p.name, p.id`
	rows, err := r.q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list inventory with products: %w", err)
	}
	defer rows.Close()

	var list []repository.InventoryWithProduct
	for rows.Next() {
		var (
			p                          entity.Product
			qty, reserved, minAlert    *int
			allowBackorder, trackStock *bool
			updatedAt                  *time.Time
		)
		if err := rows.Scan(
			&p.ID, &p.StoreID, &p.SKU, &p.Name, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt,
			&qty, &reserved, &minAlert, &allowBackorder, &trackStock, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan inventory with product: %w", err)
		}
		item := repository.InventoryWithProduct{Product: &p}
		if qty != nil {
			item.Record = &entity.InventoryRecord{
				StoreID:          p.StoreID,
				ProductID:        p.ID,
				Quantity:         *qty,
				ReservedQuantity: *reserved,
				MinStockAlert:    *minAlert,
				AllowBackorder:   *allowBackorder,
				TrackStock:       *trackStock,
				UpdatedAt:        *updatedAt,
			}
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func scanInventory(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := row.Scan(
		&rec.StoreID, &rec.ProductID, &rec.Quantity, &rec.ReservedQuantity, &rec.MinStockAlert,
		&rec.AllowBackorder, &rec.TrackStock, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
