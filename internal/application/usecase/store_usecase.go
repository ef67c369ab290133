package usecase

import (
	"context"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
	"github.com/jhoicas/vitrina-stock/pkg/slug"
)

// StoreUseCase resuelve tiendas para el motor de inventario.
type StoreUseCase struct {
	repo repository.StoreRepository
}

// NewStoreUseCase construye el caso de uso con el puerto de persistencia.
func NewStoreUseCase(repo repository.StoreRepository) *StoreUseCase {
	return &StoreUseCase{repo: repo}
}

// ResolveSlug normaliza el slug ("Baby Sweet" -> "baby-sweet") y busca la tienda activa.
// Devuelve (nil, nil) si no existe.
func (uc *StoreUseCase) ResolveSlug(ctx context.Context, raw string) (*entity.Store, error) {
	s := slug.Normalize(raw)
	if s == "" {
		return nil, nil
	}
	return uc.repo.GetBySlug(ctx, s)
}

// GetByID obtiene una tienda por ID. Devuelve (nil, nil) si no existe.
func (uc *StoreUseCase) GetByID(ctx context.Context, id string) (*entity.Store, error) {
	if id == "" {
		return nil, nil
	}
	return uc.repo.GetByID(ctx, id)
}
