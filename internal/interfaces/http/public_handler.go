package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/domain"
	"github.com/jhoicas/vitrina-stock/internal/infrastructure/telemetry"
)

// PublicHandler endpoints de la vitrina (sin autenticación, acotados por slug).
type PublicHandler struct {
	sales    *inventory.CartSaleUseCase
	accessor *inventory.AccessorUseCase
	cache    StockCache
	metrics  *telemetry.Metrics
	timeout  time.Duration
	log      zerolog.Logger
}

// NewPublicHandler construye el handler. timeout <= 0 deja el request sin tope propio.
func NewPublicHandler(
	sales *inventory.CartSaleUseCase,
	accessor *inventory.AccessorUseCase,
	stockCache StockCache,
	metrics *telemetry.Metrics,
	timeout time.Duration,
	log zerolog.Logger,
) *PublicHandler {
	return &PublicHandler{
		sales:    sales,
		accessor: accessor,
		cache:    stockCache,
		metrics:  metrics,
		timeout:  timeout,
		log:      log,
	}
}

// CartSale godoc
// @Summary      Venta del carrito de WhatsApp
// @Description  Descuenta el stock de cada ítem en su propia transacción. Responde 200 aun con ítems fallidos;
//
//	success es verdadero solo si todos los ítems se confirmaron.
//
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        slug  path  string               true  "Slug de la tienda"
// @Param        body  body  dto.CartSaleRequest  true  "order_reference e items"
// @Success      200   {object}  dto.CartSaleResult
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/public/stores/{slug}/cart-sales [post]
func (h *PublicHandler) CartSale(c *fiber.Ctx) error {
	var req dto.CartSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: CodeInvalidBody, Message: "cuerpo inválido"})
	}
	req.StoreSlug = c.Params("slug")

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res := h.sales.ProcessCartSale(ctx, req)
	if h.metrics != nil {
		h.metrics.ObserveCartSale(res)
	}
	if h.cache != nil {
		var sold []int64
		for _, r := range res.Results {
			if r.Success {
				sold = append(sold, r.ProductID)
			}
		}
		h.cache.Invalidate(context.WithoutCancel(ctx), req.StoreSlug, sold...)
	}
	return c.JSON(res)
}

// GetStock godoc
// @Summary      Stock público de un producto
// @Tags         public
// @Produce      json
// @Param        slug        path  string  true  "Slug de la tienda"
// @Param        product_id  path  int     true  "ID del producto"
// @Success      200  {object}  dto.PublicInventoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/public/stores/{slug}/inventory/{product_id} [get]
func (h *PublicHandler) GetStock(c *fiber.Ctx) error {
	slug := c.Params("slug")
	productID, ok := productIDParam(c)
	if !ok {
		return writeError(c, h.log, domain.ErrNotFoundInStore)
	}

	load := func(ctx context.Context) (*dto.PublicInventoryResponse, error) {
		rec, err := h.accessor.GetInventory(ctx, productID, inventory.Public(slug))
		if err != nil {
			return nil, err
		}
		return inventory.ToPublicInventoryResponse(rec), nil
	}

	var (
		out *dto.PublicInventoryResponse
		err error
	)
	if h.cache != nil {
		out, err = h.cache.GetPublic(c.UserContext(), slug, productID, load)
	} else {
		out, err = load(c.UserContext())
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
