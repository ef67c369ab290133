package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/application/usecase"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
	"github.com/jhoicas/vitrina-stock/pkg/config"
)

// openTestPool conecta a TEST_DATABASE_URL y aplica migraciones; omite la prueba si no está definida.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definida; se omiten pruebas de integración con PostgreSQL")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool, zerolog.Nop()))
	return pool
}

type seededStore struct {
	id       string
	slug     string
	products map[string]int64
}

// seedStore crea una tienda con módulo de stock y productos con sus cantidades.
func seedStore(t *testing.T, pool *pgxpool.Pool, quantities map[string]int) seededStore {
	t.Helper()
	ctx := context.Background()
	s := seededStore{id: uuid.New().String(), products: map[string]int64{}}
	s.slug = "test-" + s.id[:8]

	_, err := pool.Exec(ctx, `INSERT INTO stores (id, slug, name) VALUES ($1, $2, $3)`, s.id, s.slug, "Tienda "+s.slug)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO store_modules (id, store_id, module_name) VALUES ($1, $2, 'stock')`, uuid.New().String(), s.id)
	require.NoError(t, err)

	for name, qty := range quantities {
		var id int64
		require.NoError(t, pool.QueryRow(ctx,
			`INSERT INTO products (store_id, sku, name, price) VALUES ($1, $2, $3, 1000) RETURNING id`,
			s.id, name, name,
		).Scan(&id))
		_, err = pool.Exec(ctx, `INSERT INTO inventory (store_id, product_id, quantity) VALUES ($1, $2, $3)`, s.id, id, qty)
		require.NoError(t, err)
		s.products[name] = id
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM stores WHERE id = $1`, s.id)
	})
	return s
}

func newSales(pool *pgxpool.Pool) *inventory.CartSaleUseCase {
	storeRepo := NewStoreRepository(pool)
	guard := inventory.NewGuard(usecase.NewStoreUseCase(storeRepo), usecase.NewModuleService(storeRepo), NewProductRepository(pool))
	runner := NewTxRunner(pool, TxOptions{LockTimeout: 2 * time.Second, MaxRetries: 3, BaseBackoff: 10 * time.Millisecond})
	return inventory.NewCartSaleUseCase(runner, guard, nil, inventory.SaleConfig{ItemTimeout: 10 * time.Second}, zerolog.Nop())
}

func quantityOf(t *testing.T, pool *pgxpool.Pool, storeID string, productID int64) int {
	t.Helper()
	rec, err := NewInventoryRepository(pool).Get(context.Background(), storeID, productID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec.Quantity
}

func TestIntegration_CarritoMixto(t *testing.T) {
	pool := openTestPool(t)
	s := seedStore(t, pool, map[string]int{"body": 10, "gorro": 0, "medias": 2})
	sales := newSales(pool)

	res := sales.ProcessCartSale(context.Background(), dto.CartSaleRequest{
		StoreSlug:      s.slug,
		OrderReference: "ORD-INT-1",
		Items: []dto.CartSaleItemRequest{
			{ProductID: s.products["body"], Quantity: 2},
			{ProductID: s.products["medias"], Quantity: 5},
			{ProductID: s.products["gorro"], Quantity: 1},
		},
	})

	assert.False(t, res.Success)
	require.Len(t, res.Results, 3)
	assert.Equal(t, 8, *res.Results[0].NewQuantity)
	assert.Equal(t, 2, *res.Results[1].Available)
	assert.Equal(t, 0, *res.Results[2].Available)

	entries, err := NewLedgerRepository(pool).ListByProduct(context.Background(), s.id, s.products["body"], 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Venta Pública - ORD-INT-1", entries[0].Reason)
	assert.Equal(t, entity.ActorPublic, entries[0].Actor)
	assert.Equal(t, 8, entries[0].ResultingQuantity)
}

func TestIntegration_UltimaUnidadConcurrente(t *testing.T) {
	pool := openTestPool(t)
	s := seedStore(t, pool, map[string]int{"unico": 1})
	sales := newSales(pool)

	var wg sync.WaitGroup
	results := make([]dto.CartSaleResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = sales.ProcessCartSale(context.Background(), dto.CartSaleRequest{
				StoreSlug: s.slug,
				Items:     []dto.CartSaleItemRequest{{ProductID: s.products["unico"], Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r.Success {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 0, quantityOf(t, pool, s.id, s.products["unico"]))
}

func TestIntegration_ProductoDeOtraTiendaNoSeToca(t *testing.T) {
	pool := openTestPool(t)
	a := seedStore(t, pool, map[string]int{"propio": 3})
	b := seedStore(t, pool, map[string]int{"ajeno": 4})
	sales := newSales(pool)

	res := sales.ProcessCartSale(context.Background(), dto.CartSaleRequest{
		StoreSlug: a.slug,
		Items:     []dto.CartSaleItemRequest{{ProductID: b.products["ajeno"], Quantity: 1}},
	})

	assert.False(t, res.Success)
	assert.Equal(t, dto.CodeNotFoundInStore, res.Results[0].ErrorCode)
	assert.Equal(t, 4, quantityOf(t, pool, b.id, b.products["ajeno"]))

	// Provision tampoco cruza tiendas
	repo := NewInventoryRepository(pool)
	require.NoError(t, repo.Provision(context.Background(), entity.NewInventoryRecord(a.id, b.products["ajeno"], time.Now())))
	rec, err := repo.Get(context.Background(), a.id, b.products["ajeno"])
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIntegration_ProvisionEsIdempotente(t *testing.T) {
	pool := openTestPool(t)
	s := seedStore(t, pool, map[string]int{"existente": 7})
	repo := NewInventoryRepository(pool)

	require.NoError(t, repo.Provision(context.Background(), entity.NewInventoryRecord(s.id, s.products["existente"], time.Now())))

	assert.Equal(t, 7, quantityOf(t, pool, s.id, s.products["existente"]))
}

// holdRowLock toma el lock de la fila de inventario en otra transacción hasta que la prueba termine.
func holdRowLock(t *testing.T, pool *pgxpool.Pool, storeID string, productID int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	_, err = tx.Exec(ctx, `SELECT 1 FROM inventory WHERE store_id = $1 AND product_id = $2 FOR UPDATE`, storeID, productID)
	require.NoError(t, err)
}

func TestIntegration_TxRunnerAgotaReintentosConFilaBloqueada(t *testing.T) {
	pool := openTestPool(t)
	s := seedStore(t, pool, map[string]int{"bloqueado": 5})
	holdRowLock(t, pool, s.id, s.products["bloqueado"])
	runner := NewTxRunner(pool, TxOptions{LockTimeout: 50 * time.Millisecond, MaxRetries: 1, BaseBackoff: 10 * time.Millisecond})

	attempts := 0
	err := runner.Run(context.Background(), func(invRepo repository.InventoryRepository, _ repository.LedgerRepository, _ repository.ProductRepository) error {
		attempts++
		_, err := invRepo.GetForUpdate(context.Background(), s.id, s.products["bloqueado"])
		return err
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted), err.Error())
	assert.Equal(t, 2, attempts)
}

func TestIntegration_ItemBloqueadoFallaComoInternoYElRestoConfirma(t *testing.T) {
	pool := openTestPool(t)
	s := seedStore(t, pool, map[string]int{"libre": 4, "bloqueado": 5})
	holdRowLock(t, pool, s.id, s.products["bloqueado"])

	storeRepo := NewStoreRepository(pool)
	guard := inventory.NewGuard(usecase.NewStoreUseCase(storeRepo), usecase.NewModuleService(storeRepo), NewProductRepository(pool))
	runner := NewTxRunner(pool, TxOptions{LockTimeout: 50 * time.Millisecond, MaxRetries: 1, BaseBackoff: 10 * time.Millisecond})
	sales := inventory.NewCartSaleUseCase(runner, guard, nil, inventory.SaleConfig{ItemTimeout: 10 * time.Second}, zerolog.Nop())

	start := time.Now()
	res := sales.ProcessCartSale(context.Background(), dto.CartSaleRequest{
		StoreSlug:      s.slug,
		OrderReference: "ORD-LOCK-1",
		Items: []dto.CartSaleItemRequest{
			{ProductID: s.products["bloqueado"], Quantity: 1},
			{ProductID: s.products["libre"], Quantity: 1},
		},
	})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 5*time.Second)
	assert.False(t, res.Success)
	require.Len(t, res.Results, 2)
	assert.Equal(t, dto.CodeInternal, res.Results[0].ErrorCode)
	assert.Nil(t, res.Results[0].NewQuantity)
	assert.True(t, res.Results[1].Success)
	assert.Equal(t, 3, *res.Results[1].NewQuantity)
	assert.Equal(t, 3, quantityOf(t, pool, s.id, s.products["libre"]))

	entries, err := NewLedgerRepository(pool).ListByProduct(context.Background(), s.id, s.products["bloqueado"], 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
