package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// Asegura que StoreRepo implementa repository.StoreRepository.
var _ repository.StoreRepository = (*StoreRepo)(nil)

// StoreRepo implementación del puerto StoreRepository sobre PostgreSQL.
type StoreRepo struct {
	q Querier
}

// NewStoreRepository construye el adaptador de persistencia para tiendas.
func NewStoreRepository(q Querier) *StoreRepo {
	return &StoreRepo{q: q}
}

// GetBySlug obtiene una tienda activa por su slug normalizado.
func (r *StoreRepo) GetBySlug(ctx context.Context, slug string) (*entity.Store, error) {
	query := `
		SELECT id, slug, name, whatsapp_phone, status, created_at, updated_at
		FROM stores WHERE slug = $1 AND status = 'active'`
	var s entity.Store
	err := r.q.QueryRow(ctx, query, slug).Scan(
		&s.ID, &s.Slug, &s.Name, &s.WhatsAppPhone, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store by slug: %w", err)
	}
	return &s, nil
}

// GetByID obtiene una tienda por ID.
func (r *StoreRepo) GetByID(ctx context.Context, id string) (*entity.Store, error) {
	query := `
		SELECT id, slug, name, whatsapp_phone, status, created_at, updated_at
		FROM stores WHERE id = $1`
	var s entity.Store
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Slug, &s.Name, &s.WhatsAppPhone, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return &s, nil
}

// HasActiveModule informa si la tienda tiene el módulo activo y sin vencer.
// Consulta directamente store_modules para una respuesta O(1) vía índice.
func (r *StoreRepo) HasActiveModule(ctx context.Context, storeID, moduleName string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM store_modules
			 WHERE store_id    = $1
			   AND module_name = $2
			   AND is_active   = true
			   AND (expires_at IS NULL OR expires_at > now())
		)`
	var active bool
	if err := r.q.QueryRow(ctx, query, storeID, moduleName).Scan(&active); err != nil {
		return false, fmt.Errorf("check module %s: %w", moduleName, err)
	}
	return active, nil
}
