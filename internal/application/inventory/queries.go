package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// QueryUseCase consultas del panel: stock bajo, historial y listado con totales.
type QueryUseCase struct {
	guard      *Guard
	stores     StoreResolver
	invRepo    repository.InventoryRepository
	ledgerRepo repository.LedgerRepository
	report     LowStockReportGenerator
}

// NewQueryUseCase construye el caso de uso. report puede ser nil si no se expone el PDF.
func NewQueryUseCase(
	guard *Guard,
	stores StoreResolver,
	invRepo repository.InventoryRepository,
	ledgerRepo repository.LedgerRepository,
	report LowStockReportGenerator,
) *QueryUseCase {
	return &QueryUseCase{guard: guard, stores: stores, invRepo: invRepo, ledgerRepo: ledgerRepo, report: report}
}

// ListLowStock productos con control de stock en o bajo su alerta, mayor déficit primero.
// Con el módulo de stock desactivado la lista es vacía.
func (uc *QueryUseCase) ListLowStock(ctx context.Context, storeID string) ([]dto.LowStockItemDTO, error) {
	if storeID == "" {
		return nil, domain.ErrUnauthorized
	}
	enabled, err := uc.guard.TrackingEnabled(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return []dto.LowStockItemDTO{}, nil
	}
	items, err := uc.invRepo.ListLowStock(ctx, storeID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockItemDTO{
			ProductID:     it.ProductID,
			SKU:           it.SKU,
			ProductName:   it.ProductName,
			Quantity:      it.Quantity,
			MinStockAlert: it.MinStockAlert,
			Deficit:       it.MinStockAlert - it.Quantity,
		})
	}
	return out, nil
}

// ListLogs historial de un producto de la tienda, más reciente primero.
// limit fuera de rango se ajusta a los valores por defecto de dto.ClampLimit.
func (uc *QueryUseCase) ListLogs(ctx context.Context, storeID string, productID int64, limit int) ([]dto.LedgerEntryDTO, error) {
	if storeID == "" {
		return nil, domain.ErrUnauthorized
	}
	if _, err := uc.guard.ProductInStore(ctx, storeID, productID); err != nil {
		return nil, err
	}
	entries, err := uc.ledgerRepo.ListByProduct(ctx, storeID, productID, dto.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]dto.LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryDTO{
			ID:                e.ID,
			ProductID:         e.ProductID,
			Delta:             e.Delta,
			ResultingQuantity: e.ResultingQuantity,
			Reason:            e.Reason,
			Actor:             e.Actor,
			OrderReference:    e.OrderReference,
			CreatedAt:         e.CreatedAt,
		})
	}
	return out, nil
}

// ListInventoryWithProducts todos los productos de la tienda con su inventario y los totales.
// No aprovisiona: los productos sin registro salen con Inventory nil.
func (uc *QueryUseCase) ListInventoryWithProducts(ctx context.Context, storeID string) (*dto.InventoryListResponse, error) {
	if storeID == "" {
		return nil, domain.ErrUnauthorized
	}
	rows, err := uc.invRepo.ListWithProducts(ctx, storeID)
	if err != nil {
		return nil, err
	}
	resp := &dto.InventoryListResponse{Items: make([]dto.ProductInventoryDTO, 0, len(rows)), StockValue: decimal.Zero}
	for _, row := range rows {
		item := dto.ProductInventoryDTO{
			ProductID: row.Product.ID,
			SKU:       row.Product.SKU,
			Name:      row.Product.Name,
			Price:     row.Product.Price,
			Active:    row.Product.Active,
		}
		if row.Record != nil {
			item.Inventory = ToInventoryResponse(row.Record)
			if row.Record.TrackStock && row.Record.Quantity > 0 {
				resp.TotalUnits += row.Record.Quantity
				resp.StockValue = resp.StockValue.Add(row.Product.Price.Mul(decimal.NewFromInt(int64(row.Record.Quantity))))
			}
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

// LowStockReport genera el PDF de stock bajo de la tienda.
func (uc *QueryUseCase) LowStockReport(ctx context.Context, storeID string) ([]byte, error) {
	if uc.report == nil {
		return nil, domain.ErrNotFound
	}
	items, err := uc.ListLowStock(ctx, storeID)
	if err != nil {
		return nil, err
	}
	store, err := uc.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ErrUnauthorized
	}
	return uc.report.GenerateLowStockPDF(ctx, store, items, time.Now())
}

// ToInventoryResponse mapea el registro al DTO del panel.
func ToInventoryResponse(rec *entity.InventoryRecord) *dto.InventoryResponse {
	return &dto.InventoryResponse{
		ProductID:        rec.ProductID,
		Quantity:         rec.Quantity,
		ReservedQuantity: rec.ReservedQuantity,
		MinStockAlert:    rec.MinStockAlert,
		AllowBackorder:   rec.AllowBackorder,
		TrackStock:       rec.TrackStock,
		LowStock:         rec.IsLow(),
		UpdatedAt:        rec.UpdatedAt,
	}
}

// ToPublicInventoryResponse vista pública: en stock si hay unidades, admite backorder o no se controla.
func ToPublicInventoryResponse(rec *entity.InventoryRecord) *dto.PublicInventoryResponse {
	return &dto.PublicInventoryResponse{
		ProductID:      rec.ProductID,
		Quantity:       rec.Quantity,
		AllowBackorder: rec.AllowBackorder,
		TrackStock:     rec.TrackStock,
		InStock:        !rec.TrackStock || rec.AllowBackorder || rec.Quantity > 0,
	}
}
