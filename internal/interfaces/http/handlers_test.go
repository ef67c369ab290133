package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/application/usecase"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/cache"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/memory"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/pdf"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/telemetry"
	apphttp "github.com/jhoicas/vitrina-stock/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/vitrina-stock/pkg/jwt"
)

const (
	babySweetID = "5b0e6a4c-0000-4000-8000-000000000001"
	otherID     = "5b0e6a4c-0000-4000-8000-000000000002"
)

// fakeCache pasa siempre por el loader y registra las invalidaciones.
type fakeCache struct {
	mu          sync.Mutex
	loads       int
	invalidated map[string][]int64
}

func (f *fakeCache) GetPublic(ctx context.Context, storeSlug string, productID int64, load cache.Loader) (*dto.PublicInventoryResponse, error) {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	return load(ctx)
}

func (f *fakeCache) Invalidate(_ context.Context, storeSlug string, productIDs ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invalidated == nil {
		f.invalidated = map[string][]int64{}
	}
	f.invalidated[storeSlug] = append(f.invalidated[storeSlug], productIDs...)
}

type apiFixture struct {
	app     *fiber.App
	backend *memory.Backend
	cache   *fakeCache
}

// newAPI arma la API sobre el backend en memoria con la tienda baby-sweet
// (15 qty 10, 16 qty 0, 17 qty 2, 18 sin registro) y otra tienda con el producto 99.
func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIWithResolver(t, nil)
}

// newAPIWithResolver permite reemplazar el resolvedor de tiendas que usa el guard.
func newAPIWithResolver(t *testing.T, resolver inventory.StoreResolver) *apiFixture {
	t.Helper()
	b := memory.NewBackend()
	b.AddStore(entity.Store{ID: babySweetID, Slug: "baby-sweet", Name: "Baby Sweet", WhatsAppPhone: "+573001234567"}, entity.ModuleStock)
	b.AddStore(entity.Store{ID: otherID, Slug: "otra-tienda", Name: "Otra"}, entity.ModuleStock)
	for _, p := range []entity.Product{
		{ID: 15, StoreID: babySweetID, SKU: "BS-15", Name: "Body algodón", Price: decimal.NewFromInt(20000), Active: true},
		{ID: 16, StoreID: babySweetID, SKU: "BS-16", Name: "Gorro lana", Price: decimal.NewFromInt(15000), Active: true},
		{ID: 17, StoreID: babySweetID, SKU: "BS-17", Name: "Medias", Price: decimal.NewFromInt(5000), Active: true},
		{ID: 18, StoreID: babySweetID, SKU: "BS-18", Name: "Sonajero", Price: decimal.NewFromInt(8000), Active: true},
		{ID: 99, StoreID: otherID, SKU: "OT-99", Name: "Ajeno", Price: decimal.NewFromInt(1000), Active: true},
	} {
		b.AddProduct(p)
	}
	now := time.Now()
	for id, qty := range map[int64]int{15: 10, 16: 0, 17: 2} {
		rec := entity.NewInventoryRecord(babySweetID, id, now)
		rec.Quantity = qty
		b.SetInventory(*rec)
	}
	foreign := entity.NewInventoryRecord(otherID, 99, now)
	foreign.Quantity = 5
	b.SetInventory(*foreign)

	log := zerolog.Nop()
	stores := usecase.NewStoreUseCase(b)
	modules := usecase.NewModuleService(b)
	if resolver == nil {
		resolver = stores
	}
	guard := inventory.NewGuard(resolver, modules, b)
	pub := inventory.NopPublisher{}
	fc := &fakeCache{}

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Accessor:       inventory.NewAccessorUseCase(guard, b),
		Adjuster:       inventory.NewAdjustStockUseCase(b, guard, pub, log),
		CartSales:      inventory.NewCartSaleUseCase(b, guard, pub, inventory.SaleConfig{ItemTimeout: 2 * time.Second}, log),
		Queries:        inventory.NewQueryUseCase(guard, stores, b, b, pdf.NewLowStockReportGenerator()),
		Stores:         stores,
		ModuleService:  modules,
		Cache:          fc,
		Metrics:        telemetry.NewMetrics(),
		RequestTimeout: 5 * time.Second,
		JWTSecret:      testJWTSecret,
		ServiceName:    "vitrina-stock-test",
		Log:            log,
	})
	return &apiFixture{app: app, backend: b, cache: fc}
}

func bearer(t *testing.T, storeID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, storeID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *apiFixture) do(t *testing.T, method, path, auth string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = strings.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// ──────────────────────────────────────────────────────────────────────────────
// Vitrina
// ──────────────────────────────────────────────────────────────────────────────

func TestCartSale_CarritoMixto(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodPost, "/api/public/stores/baby-sweet/cart-sales", "", dto.CartSaleRequest{
		OrderReference: "WA-1001",
		Items: []dto.CartSaleItemRequest{
			{ProductID: 15, Quantity: 2},
			{ProductID: 17, Quantity: 3},
			{ProductID: 16, Quantity: 1},
		},
	})

	require.Equal(t, http.StatusOK, status)
	res := decode[dto.CartSaleResult](t, raw)
	assert.False(t, res.Success)
	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].Success)
	require.NotNil(t, res.Results[0].NewQuantity)
	assert.Equal(t, 8, *res.Results[0].NewQuantity)
	assert.Equal(t, dto.CodeInsufficientStock, res.Results[1].ErrorCode)
	assert.Equal(t, dto.CodeInsufficientStock, res.Results[2].ErrorCode)

	assert.Equal(t, 8, f.backend.Record(babySweetID, 15).Quantity)
	assert.Equal(t, []int64{15}, f.cache.invalidated["baby-sweet"])
}

func TestCartSale_CuerpoMalformado_Retorna400(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodPost, "/api/public/stores/baby-sweet/cart-sales", "", `{"items": [`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), "INVALID_BODY")
}

func TestCartSale_TiendaDesconocida(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodPost, "/api/public/stores/no-existe/cart-sales", "", dto.CartSaleRequest{
		Items: []dto.CartSaleItemRequest{{ProductID: 15, Quantity: 1}},
	})

	require.Equal(t, http.StatusOK, status)
	res := decode[dto.CartSaleResult](t, raw)
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, dto.CodeNotFoundInStore, res.Results[0].ErrorCode)
	assert.Equal(t, 10, f.backend.Record(babySweetID, 15).Quantity)
}

func TestPublicStock(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodGet, "/api/public/stores/baby-sweet/inventory/15", "", nil)
	require.Equal(t, http.StatusOK, status)
	out := decode[dto.PublicInventoryResponse](t, raw)
	assert.Equal(t, int64(15), out.ProductID)
	assert.Equal(t, 10, out.Quantity)
	assert.True(t, out.InStock)

	status, raw = f.do(t, http.MethodGet, "/api/public/stores/baby-sweet/inventory/16", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[dto.PublicInventoryResponse](t, raw).InStock)
	assert.Equal(t, 2, f.cache.loads)
}

func TestPublicStock_ProductoAjenoIgualQueInexistente(t *testing.T) {
	f := newAPI(t)

	statusForeign, rawForeign := f.do(t, http.MethodGet, "/api/public/stores/baby-sweet/inventory/99", "", nil)
	statusMissing, rawMissing := f.do(t, http.MethodGet, "/api/public/stores/baby-sweet/inventory/123456", "", nil)
	statusBadID, _ := f.do(t, http.MethodGet, "/api/public/stores/baby-sweet/inventory/abc", "", nil)

	assert.Equal(t, http.StatusNotFound, statusForeign)
	assert.Equal(t, statusForeign, statusMissing)
	assert.Equal(t, statusForeign, statusBadID)
	assert.Equal(t, string(rawForeign), string(rawMissing))
	assert.Contains(t, string(rawForeign), dto.CodeNotFoundInStore)
}

// downStores simula la base de tiendas caída.
type downStores struct{}

func (downStores) ResolveSlug(context.Context, string) (*entity.Store, error) {
	return nil, errors.New("db down")
}

func (downStores) GetByID(context.Context, string) (*entity.Store, error) {
	return nil, errors.New("db down")
}

func TestPublicStock_FalloDeDatosRetorna500(t *testing.T) {
	f := newAPIWithResolver(t, downStores{})

	status, raw := f.do(t, http.MethodGet, "/api/public/stores/baby-sweet/inventory/15", "", nil)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(raw), dto.CodeInternal)
	assert.NotContains(t, string(raw), dto.CodeNotFoundInStore)
}

// ──────────────────────────────────────────────────────────────────────────────
// Panel
// ──────────────────────────────────────────────────────────────────────────────

func TestAdminGet_SinToken_Retorna401(t *testing.T) {
	f := newAPI(t)

	status, _ := f.do(t, http.MethodGet, "/api/inventory/15", "", nil)

	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminGet_AprovisionaRegistro(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodGet, "/api/inventory/18", bearer(t, babySweetID, entity.RoleStaff), nil)

	require.Equal(t, http.StatusOK, status)
	out := decode[dto.InventoryResponse](t, raw)
	assert.Equal(t, int64(18), out.ProductID)
	assert.Equal(t, 0, out.Quantity)
	assert.Equal(t, entity.DefaultMinStockAlert, out.MinStockAlert)
	assert.True(t, out.TrackStock)
	assert.Empty(t, f.backend.Entries(babySweetID, 18), "aprovisionar no escribe en el historial")
}

func TestAdminGet_ProductoDeOtraTienda_Retorna404(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodGet, "/api/inventory/99", bearer(t, babySweetID, entity.RoleOwner), nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(raw), dto.CodeNotFoundInStore)
}

func TestAdjust_SumaStockEInvalidaCache(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodPost, "/api/inventory/16/adjust", bearer(t, babySweetID, entity.RoleOwner),
		dto.AdjustStockRequest{Delta: 5, Reason: "llegó pedido del proveedor"})

	require.Equal(t, http.StatusOK, status, string(raw))
	out := decode[dto.AdjustStockResponse](t, raw)
	assert.Equal(t, int64(16), out.ProductID)
	assert.Equal(t, 5, out.NewQuantity)
	assert.Equal(t, []int64{16}, f.cache.invalidated["baby-sweet"])

	status, raw = f.do(t, http.MethodGet, "/api/inventory/16/logs", bearer(t, babySweetID, entity.RoleOwner), nil)
	require.Equal(t, http.StatusOK, status)
	logs := decode[struct {
		Total   int                  `json:"total"`
		Entries []dto.LedgerEntryDTO `json:"entries"`
	}](t, raw)
	require.Equal(t, 1, logs.Total)
	assert.Equal(t, 5, logs.Entries[0].Delta)
	assert.Equal(t, 5, logs.Entries[0].ResultingQuantity)
	assert.Equal(t, "llegó pedido del proveedor", logs.Entries[0].Reason)
}

func TestAdjust_Errores(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"stock insuficiente", "/api/inventory/17/adjust", dto.AdjustStockRequest{Delta: -20}, http.StatusConflict, dto.CodeInsufficientStock},
		{"producto de otra tienda", "/api/inventory/99/adjust", dto.AdjustStockRequest{Delta: 1}, http.StatusForbidden, apphttp.CodeUnauthorized},
		{"delta cero", "/api/inventory/15/adjust", dto.AdjustStockRequest{Delta: 0}, http.StatusBadRequest, dto.CodeInvalidInput},
		{"cuerpo malformado", "/api/inventory/15/adjust", `{"delta":`, http.StatusBadRequest, apphttp.CodeInvalidBody},
		{"id inválido", "/api/inventory/abc/adjust", dto.AdjustStockRequest{Delta: 1}, http.StatusBadRequest, dto.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPI(t)

			status, raw := f.do(t, http.MethodPost, tt.path, bearer(t, babySweetID, entity.RoleOwner), tt.body)

			assert.Equal(t, tt.status, status, string(raw))
			assert.Contains(t, string(raw), tt.code)
		})
	}
}

func TestAdjust_ModuloDesactivado_Retorna403(t *testing.T) {
	f := newAPI(t)
	f.backend.SetModule(babySweetID, entity.ModuleStock, false)

	status, raw := f.do(t, http.MethodPost, "/api/inventory/15/adjust", bearer(t, babySweetID, entity.RoleOwner),
		dto.AdjustStockRequest{Delta: 1})

	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(raw), apphttp.CodeModuleDisabled)
	assert.Equal(t, 10, f.backend.Record(babySweetID, 15).Quantity)
}

func TestAdjust_RolNoPermitido_Retorna403(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodPost, "/api/inventory/15/adjust", bearer(t, babySweetID, "viewer"),
		dto.AdjustStockRequest{Delta: 1})

	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(raw), "FORBIDDEN")
}

func TestListLowStock(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodGet, "/api/inventory/low-stock", bearer(t, babySweetID, entity.RoleStaff), nil)

	require.Equal(t, http.StatusOK, status)
	out := decode[struct {
		Total int                   `json:"total"`
		Items []dto.LowStockItemDTO `json:"items"`
	}](t, raw)
	// 16 (0/5) y 17 (2/5); 15 tiene 10
	require.Equal(t, 2, out.Total)
	assert.Equal(t, int64(16), out.Items[0].ProductID)
	assert.Equal(t, 5, out.Items[0].Deficit)
}

func TestLowStockReport_PDF(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/inventory/low-stock/report.pdf", nil)
	req.Header.Set("Authorization", bearer(t, babySweetID, entity.RoleOwner))

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestListInventory(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodGet, "/api/inventory", bearer(t, babySweetID, entity.RoleOwner), nil)

	require.Equal(t, http.StatusOK, status)
	out := decode[dto.InventoryListResponse](t, raw)
	assert.Len(t, out.Items, 4)
	assert.Equal(t, 12, out.TotalUnits)
	// 10*20000 + 2*5000
	assert.True(t, decimal.NewFromInt(210000).Equal(out.StockValue), out.StockValue.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Operación
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthYMetrics(t *testing.T) {
	f := newAPI(t)

	status, raw := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "vitrina-stock-test")

	f.do(t, http.MethodPost, "/api/public/stores/baby-sweet/cart-sales", "", dto.CartSaleRequest{
		Items: []dto.CartSaleItemRequest{{ProductID: 15, Quantity: 1}},
	})

	status, raw = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "vitrina_cart_sales_total")
	assert.Contains(t, string(raw), `outcome="success"`)
}
