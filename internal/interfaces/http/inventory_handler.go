package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/cache"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/telemetry"
)

// StockCache caché de lectura del stock público (la implementa *cache.StockCache).
type StockCache interface {
	GetPublic(ctx context.Context, storeSlug string, productID int64, load cache.Loader) (*dto.PublicInventoryResponse, error)
	Invalidate(ctx context.Context, storeSlug string, productIDs ...int64)
}

// InventoryHandler maneja las peticiones HTTP del panel de inventario (protegido).
type InventoryHandler struct {
	accessor *inventory.AccessorUseCase
	adjuster *inventory.AdjustStockUseCase
	queries  *inventory.QueryUseCase
	stores   inventory.StoreResolver
	cache    StockCache
	metrics  *telemetry.Metrics
	log      zerolog.Logger
}

// NewInventoryHandler construye el handler. cache y metrics pueden ser nil.
func NewInventoryHandler(
	accessor *inventory.AccessorUseCase,
	adjuster *inventory.AdjustStockUseCase,
	queries *inventory.QueryUseCase,
	stores inventory.StoreResolver,
	stockCache StockCache,
	metrics *telemetry.Metrics,
	log zerolog.Logger,
) *InventoryHandler {
	return &InventoryHandler{
		accessor: accessor,
		adjuster: adjuster,
		queries:  queries,
		stores:   stores,
		cache:    stockCache,
		metrics:  metrics,
		log:      log,
	}
}

// Get godoc
// @Summary      Inventario de un producto
// @Description  Devuelve el registro de inventario; si el producto no tiene uno se crea con valores por defecto.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  int  true  "ID del producto"
// @Success      200  {object}  dto.InventoryResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id} [get]
func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	storeID, userID := GetStoreID(c), GetUserID(c)
	if storeID == "" || userID == "" {
		return unauthorized(c)
	}
	productID, ok := productIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidInput, Message: "product_id inválido"})
	}
	rec, err := h.accessor.GetInventory(c.UserContext(), productID, inventory.Authenticated(storeID, userID))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inventory.ToInventoryResponse(rec))
}

// Adjust godoc
// @Summary      Ajuste manual de stock
// @Description  Suma delta (positivo o negativo) a la cantidad y registra la entrada en el historial.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        product_id  path  int                     true  "ID del producto"
// @Param        body        body  dto.AdjustStockRequest  true  "delta distinto de cero y motivo opcional"
// @Success      200  {object}  dto.AdjustStockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id}/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	storeID, userID := GetStoreID(c), GetUserID(c)
	if storeID == "" || userID == "" {
		return unauthorized(c)
	}
	productID, ok := productIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidInput, Message: "product_id inválido"})
	}
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: CodeInvalidBody, Message: "cuerpo inválido"})
	}

	ctx := c.UserContext()
	newQty, err := h.adjuster.AdjustStock(ctx, inventory.AdjustInput{
		StoreID:   storeID,
		UserID:    userID,
		ProductID: productID,
		Delta:     in.Delta,
		Reason:    in.Reason,
	})
	if h.metrics != nil {
		h.metrics.ObserveAdjustment(err)
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	h.invalidate(ctx, storeID, productID)
	return c.JSON(dto.AdjustStockResponse{ProductID: productID, NewQuantity: newQty})
}

// ListLowStock godoc
// @Summary      Productos con stock bajo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.LowStockItemDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	items, err := h.queries.ListLowStock(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(items), "items": items})
}

// LowStockReport godoc
// @Summary      Reporte PDF de stock bajo
// @Tags         inventory
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/inventory/low-stock/report.pdf [get]
func (h *InventoryHandler) LowStockReport(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	pdf, err := h.queries.LowStockReport(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="stock-bajo.pdf"`)
	return c.Send(pdf)
}

// ListLogs godoc
// @Summary      Historial de stock de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   int  true   "ID del producto"
// @Param        limit       query  int  false  "Máximo de entradas (defecto 50, máximo 200)"
// @Success      200  {array}   dto.LedgerEntryDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id}/logs [get]
func (h *InventoryHandler) ListLogs(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	productID, ok := productIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidInput, Message: "product_id inválido"})
	}
	entries, err := h.queries.ListLogs(c.UserContext(), storeID, productID, c.QueryInt("limit", dto.DefaultLogLimit))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(entries), "entries": entries})
}

// List godoc
// @Summary      Inventario de la tienda con productos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.InventoryListResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	out, err := h.queries.ListInventoryWithProducts(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// invalidate borra la vista pública cacheada del producto; un fallo solo se registra.
func (h *InventoryHandler) invalidate(ctx context.Context, storeID string, productID int64) {
	if h.cache == nil {
		return
	}
	store, err := h.stores.GetByID(context.WithoutCancel(ctx), storeID)
	if err != nil || store == nil {
		h.log.Warn().Err(err).Str("store_id", storeID).Msg("no se pudo resolver la tienda para invalidar caché")
		return
	}
	h.cache.Invalidate(context.WithoutCancel(ctx), store.Slug, productID)
}

func productIDParam(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("product_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
