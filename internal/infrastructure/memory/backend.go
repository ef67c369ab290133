// Package memory implementa los puertos del motor de inventario en memoria.
// Respeta la misma semántica que Postgres (bloqueo por fila hasta fin de tx, escrituras atómicas
// al confirmar) y se usa en pruebas y en modo demo.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appinventory "github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// ErrInjected error devuelto por las fallas programadas con FailLedgerAppends.
var ErrInjected = errors.New("memory: falla inyectada")

type recordKey struct {
	storeID   string
	productID int64
}

// Backend guarda tiendas, productos, inventario y ledger.
type Backend struct {
	mu       sync.RWMutex
	stores   map[string]*entity.Store
	modules  map[string]map[string]bool
	products map[int64]*entity.Product
	records  map[recordKey]*entity.InventoryRecord
	ledger   []*entity.LedgerEntry

	lockMu sync.Mutex
	locks  map[recordKey]chan struct{}

	failAppends int
}

var (
	_ repository.StoreRepository     = (*Backend)(nil)
	_ repository.ProductRepository   = (*Backend)(nil)
	_ repository.InventoryRepository = (*Backend)(nil)
	_ repository.LedgerRepository    = (*Backend)(nil)
	_ appinventory.TxRunner          = (*Backend)(nil)
)

// NewBackend crea un backend vacío.
func NewBackend() *Backend {
	return &Backend{
		stores:   make(map[string]*entity.Store),
		modules:  make(map[string]map[string]bool),
		products: make(map[int64]*entity.Product),
		records:  make(map[recordKey]*entity.InventoryRecord),
		locks:    make(map[recordKey]chan struct{}),
	}
}

// ── Carga de datos ───────────────────────────────────────────────────────────

// AddStore registra una tienda con los módulos activos indicados.
func (b *Backend) AddStore(s entity.Store, modules ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.Status == "" {
		s.Status = entity.StoreActive
	}
	b.stores[s.ID] = &s
	b.modules[s.ID] = make(map[string]bool, len(modules))
	for _, m := range modules {
		b.modules[s.ID][m] = true
	}
}

// SetModule activa o desactiva un módulo de la tienda.
func (b *Backend) SetModule(storeID, module string, active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.modules[storeID] == nil {
		b.modules[storeID] = make(map[string]bool)
	}
	b.modules[storeID][module] = active
}

// AddProduct registra un producto.
func (b *Backend) AddProduct(p entity.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[p.ID] = &p
}

// SetInventory reemplaza el registro de inventario.
func (b *Backend) SetInventory(rec entity.InventoryRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[recordKey{rec.StoreID, rec.ProductID}] = &rec
}

// Record devuelve una copia del registro confirmado (nil si no existe).
func (b *Backend) Record(storeID string, productID int64) *entity.InventoryRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[recordKey{storeID, productID}]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Entries devuelve las entradas confirmadas del producto en orden de inserción.
func (b *Backend) Entries(storeID string, productID int64) []entity.LedgerEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []entity.LedgerEntry
	for _, e := range b.ledger {
		if e.StoreID == storeID && e.ProductID == productID {
			out = append(out, *e)
		}
	}
	return out
}

// FailLedgerAppends hace fallar las próximas n inserciones de ledger dentro de transacciones.
func (b *Backend) FailLedgerAppends(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAppends = n
}

func (b *Backend) consumeFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAppends > 0 {
		b.failAppends--
		return true
	}
	return false
}

// ── StoreRepository ─────────────────────────────────────────────────────────

func (b *Backend) GetBySlug(_ context.Context, slug string) (*entity.Store, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.stores {
		if s.Slug == slug && s.Status == entity.StoreActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *Backend) GetByID(_ context.Context, id string) (*entity.Store, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.stores[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (b *Backend) HasActiveModule(_ context.Context, storeID, moduleName string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.modules[storeID][moduleName], nil
}

// ── ProductRepository ───────────────────────────────────────────────────────

func (b *Backend) GetInStore(_ context.Context, storeID string, productID int64) (*entity.Product, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.products[productID]
	if !ok || p.StoreID != storeID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (b *Backend) ListByStore(_ context.Context, storeID string) ([]*entity.Product, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*entity.Product
	for _, p := range b.products {
		if p.StoreID == storeID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── InventoryRepository (fuera de transacción) ──────────────────────────────

func (b *Backend) Get(_ context.Context, storeID string, productID int64) (*entity.InventoryRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.committed(storeID, productID), nil
}

// GetForUpdate fuera de una transacción no bloquea; equivale a Get.
func (b *Backend) GetForUpdate(ctx context.Context, storeID string, productID int64) (*entity.InventoryRecord, error) {
	return b.Get(ctx, storeID, productID)
}

func (b *Backend) Provision(_ context.Context, rec *entity.InventoryRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Igual que el INSERT ... SELECT de Postgres: un producto ajeno no inserta nada
	if p, ok := b.products[rec.ProductID]; !ok || p.StoreID != rec.StoreID {
		return nil
	}
	k := recordKey{rec.StoreID, rec.ProductID}
	if _, ok := b.records[k]; !ok {
		cp := *rec
		b.records[k] = &cp
	}
	return nil
}

func (b *Backend) UpdateQuantity(_ context.Context, storeID string, productID int64, quantity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[recordKey{storeID, productID}]
	if !ok {
		return domain.ErrNotFoundInStore
	}
	rec.Quantity = quantity
	rec.UpdatedAt = time.Now()
	return nil
}

func (b *Backend) ListLowStock(_ context.Context, storeID string) ([]repository.LowStockItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []repository.LowStockItem
	for k, rec := range b.records {
		p, ok := b.products[k.productID]
		if k.storeID != storeID || !ok || p.StoreID != storeID || !rec.IsLow() {
			continue
		}
		out = append(out, repository.LowStockItem{
			ProductID:     p.ID,
			SKU:           p.SKU,
			ProductName:   p.Name,
			Quantity:      rec.Quantity,
			MinStockAlert: rec.MinStockAlert,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].MinStockAlert-out[i].Quantity, out[j].MinStockAlert-out[j].Quantity
		if di != dj {
			return di > dj
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out, nil
}

func (b *Backend) ListWithProducts(ctx context.Context, storeID string) ([]repository.InventoryWithProduct, error) {
	products, _ := b.ListByStore(ctx, storeID)
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]repository.InventoryWithProduct, 0, len(products))
	for _, p := range products {
		out = append(out, repository.InventoryWithProduct{Product: p, Record: b.committed(storeID, p.ID)})
	}
	return out, nil
}

// ── LedgerRepository (fuera de transacción) ─────────────────────────────────

func (b *Backend) Append(_ context.Context, entry *entity.LedgerEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledger = append(b.ledger, prepareEntry(entry))
	return nil
}

func (b *Backend) ListByProduct(_ context.Context, storeID string, productID int64, limit int) ([]*entity.LedgerEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*entity.LedgerEntry
	for i := len(b.ledger) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		e := b.ledger[i]
		if e.StoreID == storeID && e.ProductID == productID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// committed requiere b.mu tomado.
func (b *Backend) committed(storeID string, productID int64) *entity.InventoryRecord {
	rec, ok := b.records[recordKey{storeID, productID}]
	if !ok {
		return nil
	}
	if p, ok := b.products[productID]; !ok || p.StoreID != storeID {
		return nil
	}
	cp := *rec
	return &cp
}

func prepareEntry(entry *entity.LedgerEntry) *entity.LedgerEntry {
	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	return &cp
}
