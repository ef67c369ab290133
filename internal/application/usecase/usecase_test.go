package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vitrina-stock/internal/application/usecase"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/memory"
)

func newBackend() *memory.Backend {
	b := memory.NewBackend()
	b.AddStore(entity.Store{ID: "s-1", Slug: "baby-sweet", Name: "Baby Sweet"}, entity.ModuleStock)
	b.AddStore(entity.Store{ID: "s-2", Slug: "cerrada", Name: "Cerrada", Status: "suspended"})
	return b
}

func TestStoreUseCase_ResolveSlugNormaliza(t *testing.T) {
	uc := usecase.NewStoreUseCase(newBackend())
	ctx := context.Background()

	for _, raw := range []string{"baby-sweet", "Baby Sweet", "  BABY-SWEET "} {
		store, err := uc.ResolveSlug(ctx, raw)
		require.NoError(t, err, raw)
		require.NotNil(t, store, raw)
		assert.Equal(t, "s-1", store.ID)
	}
}

func TestStoreUseCase_ResolveSlugDesconocidoOSuspendido(t *testing.T) {
	uc := usecase.NewStoreUseCase(newBackend())
	ctx := context.Background()

	for _, raw := range []string{"", "no-existe", "cerrada"} {
		store, err := uc.ResolveSlug(ctx, raw)
		require.NoError(t, err, raw)
		assert.Nil(t, store, raw)
	}
}

func TestStoreUseCase_GetByID(t *testing.T) {
	uc := usecase.NewStoreUseCase(newBackend())

	store, err := uc.GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, "baby-sweet", store.Slug)

	store, err = uc.GetByID(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestModuleService_HasActiveModule(t *testing.T) {
	b := newBackend()
	svc := usecase.NewModuleService(b)
	ctx := context.Background()

	active, err := svc.HasActiveModule(ctx, "s-1", entity.ModuleStock)
	require.NoError(t, err)
	assert.True(t, active)

	b.SetModule("s-1", entity.ModuleStock, false)
	active, err = svc.HasActiveModule(ctx, "s-1", entity.ModuleStock)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.HasActiveModule(ctx, "", entity.ModuleStock)
	assert.Error(t, err)
}

func TestModuleService_StockTrackingEnabled(t *testing.T) {
	b := newBackend()
	b.SetModule("s-2", entity.ModuleStock, true)
	svc := usecase.NewModuleService(b)
	ctx := context.Background()

	cases := []struct {
		name    string
		storeID string
		want    bool
	}{
		{"tienda activa con módulo", "s-1", true},
		{"tienda suspendida aunque tenga módulo", "s-2", false},
		{"tienda desconocida", "s-9", false},
		{"sin tienda", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.StockTrackingEnabled(ctx, tc.storeID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	b.SetModule("s-1", entity.ModuleStock, false)
	got, err := svc.StockTrackingEnabled(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, got)
}
