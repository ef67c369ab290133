package memory

import (
	"context"
	"time"

	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// Run ejecuta fn con repositorios transaccionales. Los bloqueos tomados con GetForUpdate se
// mantienen hasta el final; las escrituras se aplican juntas solo si fn devuelve nil.
func (b *Backend) Run(ctx context.Context, fn func(
	invRepo repository.InventoryRepository,
	ledgerRepo repository.LedgerRepository,
	productRepo repository.ProductRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		b:      b,
		held:   make(map[recordKey]chan struct{}),
		staged: make(map[recordKey]*entity.InventoryRecord),
	}
	defer tx.release()

	if err := fn(&txInventory{tx}, &txLedger{tx}, b); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (b *Backend) lockChan(k recordKey) chan struct{} {
	b.lockMu.Lock()
	defer b.lockMu.Unlock()
	ch, ok := b.locks[k]
	if !ok {
		ch = make(chan struct{}, 1)
		b.locks[k] = ch
	}
	return ch
}

type memTx struct {
	b       *Backend
	held    map[recordKey]chan struct{}
	staged  map[recordKey]*entity.InventoryRecord
	entries []*entity.LedgerEntry
}

// lock espera el bloqueo de la fila o la cancelación del contexto.
func (tx *memTx) lock(ctx context.Context, k recordKey) error {
	if _, ok := tx.held[k]; ok {
		return nil
	}
	ch := tx.b.lockChan(k)
	select {
	case ch <- struct{}{}:
		tx.held[k] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (tx *memTx) release() {
	for k, ch := range tx.held {
		<-ch
		delete(tx.held, k)
	}
}

func (tx *memTx) read(k recordKey) *entity.InventoryRecord {
	if rec, ok := tx.staged[k]; ok {
		cp := *rec
		return &cp
	}
	tx.b.mu.RLock()
	defer tx.b.mu.RUnlock()
	return tx.b.committed(k.storeID, k.productID)
}

func (tx *memTx) commit() {
	tx.b.mu.Lock()
	defer tx.b.mu.Unlock()
	for k, rec := range tx.staged {
		tx.b.records[k] = rec
	}
	tx.b.ledger = append(tx.b.ledger, tx.entries...)
}

type txInventory struct{ tx *memTx }

func (r *txInventory) Get(_ context.Context, storeID string, productID int64) (*entity.InventoryRecord, error) {
	return r.tx.read(recordKey{storeID, productID}), nil
}

func (r *txInventory) GetForUpdate(ctx context.Context, storeID string, productID int64) (*entity.InventoryRecord, error) {
	k := recordKey{storeID, productID}
	if err := r.tx.lock(ctx, k); err != nil {
		return nil, err
	}
	return r.tx.read(k), nil
}

func (r *txInventory) Provision(ctx context.Context, rec *entity.InventoryRecord) error {
	p, _ := r.tx.b.GetInStore(ctx, rec.StoreID, rec.ProductID)
	if p == nil {
		return nil
	}
	k := recordKey{rec.StoreID, rec.ProductID}
	if r.tx.read(k) == nil {
		cp := *rec
		r.tx.staged[k] = &cp
	}
	return nil
}

func (r *txInventory) UpdateQuantity(_ context.Context, storeID string, productID int64, quantity int) error {
	k := recordKey{storeID, productID}
	rec := r.tx.read(k)
	if rec == nil {
		return domain.ErrNotFoundInStore
	}
	rec.Quantity = quantity
	rec.UpdatedAt = time.Now()
	r.tx.staged[k] = rec
	return nil
}

func (r *txInventory) ListLowStock(ctx context.Context, storeID string) ([]repository.LowStockItem, error) {
	return r.tx.b.ListLowStock(ctx, storeID)
}

func (r *txInventory) ListWithProducts(ctx context.Context, storeID string) ([]repository.InventoryWithProduct, error) {
	return r.tx.b.ListWithProducts(ctx, storeID)
}

type txLedger struct{ tx *memTx }

func (r *txLedger) Append(_ context.Context, entry *entity.LedgerEntry) error {
	if r.tx.b.consumeFailure() {
		return ErrInjected
	}
	r.tx.entries = append(r.tx.entries, prepareEntry(entry))
	return nil
}

func (r *txLedger) ListByProduct(ctx context.Context, storeID string, productID int64, limit int) ([]*entity.LedgerEntry, error) {
	return r.tx.b.ListByProduct(ctx, storeID, productID, limit)
}
