package inventory_test

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/application/usecase"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/memory"
)

const (
	babySweetID = "5b0e6a4c-0000-4000-8000-000000000001"
	otherID     = "5b0e6a4c-0000-4000-8000-000000000002"
	ownerID     = "9c1d7e2f-0000-4000-8000-0000000000aa"
)

// mockPublisher registra los eventos publicados.
type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, events ...inventory.MovementEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *mockPublisher) events() []inventory.MovementEvent {
	var out []inventory.MovementEvent
	for _, c := range m.Calls {
		out = append(out, c.Arguments.Get(1).([]inventory.MovementEvent)...)
	}
	return out
}

type fixture struct {
	backend   *memory.Backend
	publisher *mockPublisher
	accessor  *inventory.AccessorUseCase
	adjuster  *inventory.AdjustStockUseCase
	sales     *inventory.CartSaleUseCase
	queries   *inventory.QueryUseCase
}

// newFixture arma la tienda "baby-sweet" (15 qty 10, 16 qty 0, 17 qty 2, 18 sin registro)
// y otra tienda con el producto 99 (qty 5).
func newFixture() *fixture {
	b := memory.NewBackend()
	b.AddStore(entity.Store{ID: babySweetID, Slug: "baby-sweet", Name: "Baby Sweet"}, entity.ModuleStock)
	b.AddStore(entity.Store{ID: otherID, Slug: "otra-tienda", Name: "Otra"}, entity.ModuleStock)

	now := time.Now()
	for _, p := range []entity.Product{
		{ID: 15, StoreID: babySweetID, SKU: "BS-15", Name: "Body algodón", Price: decimal.NewFromInt(20000), Active: true},
		{ID: 16, StoreID: babySweetID, SKU: "BS-16", Name: "Gorro lana", Price: decimal.NewFromInt(15000), Active: true},
		{ID: 17, StoreID: babySweetID, SKU: "BS-17", Name: "Medias", Price: decimal.NewFromInt(5000), Active: true},
		{ID: 18, StoreID: babySweetID, SKU: "BS-18", Name: "Sonajero", Price: decimal.NewFromInt(8000), Active: true},
		{ID: 99, StoreID: otherID, SKU: "OT-99", Name: "Ajeno", Price: decimal.NewFromInt(1000), Active: true},
	} {
		b.AddProduct(p)
	}
	for id, qty := range map[int64]int{15: 10, 16: 0, 17: 2} {
		rec := entity.NewInventoryRecord(babySweetID, id, now)
		rec.Quantity = qty
		b.SetInventory(*rec)
	}
	foreign := entity.NewInventoryRecord(otherID, 99, now)
	foreign.Quantity = 5
	b.SetInventory(*foreign)

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	stores := usecase.NewStoreUseCase(b)
	guard := inventory.NewGuard(stores, usecase.NewModuleService(b), b)
	log := zerolog.Nop()
	return &fixture{
		backend:   b,
		publisher: pub,
		accessor:  inventory.NewAccessorUseCase(guard, b),
		adjuster:  inventory.NewAdjustStockUseCase(b, guard, pub, log),
		sales:     inventory.NewCartSaleUseCase(b, guard, pub, inventory.SaleConfig{ItemTimeout: 2 * time.Second}, log),
		queries:   inventory.NewQueryUseCase(guard, stores, b, b, nil),
	}
}

func intPtr(v int) *int { return &v }
