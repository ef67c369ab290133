package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
)

func adjust(productID int64, delta int, reason string) inventory.AdjustInput {
	return inventory.AdjustInput{StoreID: babySweetID, UserID: ownerID, ProductID: productID, Delta: delta, Reason: reason}
}

func TestAdjustStock_Entrada(t *testing.T) {
	f := newFixture()

	got, err := f.adjuster.AdjustStock(context.Background(), adjust(17, 8, "Llegó pedido del proveedor"))

	require.NoError(t, err)
	assert.Equal(t, 10, got)
	assert.Equal(t, 10, f.backend.Record(babySweetID, 17).Quantity)
	entries := f.backend.Entries(babySweetID, 17)
	require.Len(t, entries, 1)
	assert.Equal(t, 8, entries[0].Delta)
	assert.Equal(t, ownerID, entries[0].Actor)
	assert.Equal(t, "Llegó pedido del proveedor", entries[0].Reason)
	assert.Empty(t, entries[0].OrderReference)
}

func TestAdjustStock_MotivoPorDefecto(t *testing.T) {
	f := newFixture()

	_, err := f.adjuster.AdjustStock(context.Background(), adjust(15, -1, "   "))

	require.NoError(t, err)
	assert.Equal(t, entity.DefaultAdjustReason, f.backend.Entries(babySweetID, 15)[0].Reason)
}

func TestAdjustStock_SalidaMayorAlStock(t *testing.T) {
	f := newFixture()

	_, err := f.adjuster.AdjustStock(context.Background(), adjust(17, -3, ""))

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	available, ok := domain.AvailableFrom(err)
	assert.True(t, ok)
	assert.Equal(t, 2, available)
	assert.Equal(t, 2, f.backend.Record(babySweetID, 17).Quantity)
	assert.Empty(t, f.backend.Entries(babySweetID, 17))
}

func TestAdjustStock_AprovisionaSiNoHayRegistro(t *testing.T) {
	f := newFixture()

	got, err := f.adjuster.AdjustStock(context.Background(), adjust(18, 4, ""))

	require.NoError(t, err)
	assert.Equal(t, 4, got)
	rec := f.backend.Record(babySweetID, 18)
	require.NotNil(t, rec)
	assert.Equal(t, entity.DefaultMinStockAlert, rec.MinStockAlert)
	assert.Len(t, f.backend.Entries(babySweetID, 18), 1)
}

func TestAdjustStock_ProductoAjenoOInexistente(t *testing.T) {
	f := newFixture()

	_, errForeign := f.adjuster.AdjustStock(context.Background(), adjust(99, 5, ""))
	_, errMissing := f.adjuster.AdjustStock(context.Background(), adjust(4242, 5, ""))

	assert.ErrorIs(t, errForeign, domain.ErrUnauthorized)
	assert.ErrorIs(t, errMissing, domain.ErrUnauthorized)
	assert.Equal(t, errForeign.Error(), errMissing.Error())
	assert.Equal(t, 5, f.backend.Record(otherID, 99).Quantity)
}

func TestAdjustStock_ValidacionesDeEntrada(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.adjuster.AdjustStock(ctx, adjust(15, 0, ""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.adjuster.AdjustStock(ctx, inventory.AdjustInput{ProductID: 15, Delta: 1})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAdjustStock_ModuloDesactivado(t *testing.T) {
	f := newFixture()
	f.backend.SetModule(babySweetID, entity.ModuleStock, false)

	_, err := f.adjuster.AdjustStock(context.Background(), adjust(15, 1, ""))

	assert.ErrorIs(t, err, domain.ErrStockTrackingDisabled)
	assert.Equal(t, 10, f.backend.Record(babySweetID, 15).Quantity)
}

func TestAdjustStock_TiendaSuspendidaSinControl(t *testing.T) {
	f := newFixture()
	f.backend.AddStore(entity.Store{ID: babySweetID, Slug: "baby-sweet", Name: "Baby Sweet", Status: entity.StoreSuspended}, entity.ModuleStock)

	_, err := f.adjuster.AdjustStock(context.Background(), adjust(15, 1, ""))

	assert.ErrorIs(t, err, domain.ErrStockTrackingDisabled)
	assert.Equal(t, 10, f.backend.Record(babySweetID, 15).Quantity)
}

func TestAdjustStock_PublicaEvento(t *testing.T) {
	f := newFixture()

	_, err := f.adjuster.AdjustStock(context.Background(), adjust(15, 5, "conteo"))

	require.NoError(t, err)
	events := f.publisher.events()
	require.Len(t, events, 1)
	assert.Equal(t, 15, events[0].Entry.ResultingQuantity)
	assert.False(t, events[0].LowStock)
}
