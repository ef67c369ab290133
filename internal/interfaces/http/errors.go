package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/domain"
)

// Códigos propios de la capa HTTP.
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeModuleDisabled = "MODULE_DISABLED"
	CodeInvalidBody    = "INVALID_BODY"
)

// writeError traduce un error de dominio a status + dto.ErrorResponse.
// Los errores de infraestructura se registran y salen como 500 sin detalle.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, body := mapError(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	}
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrNotFoundInStore):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: dto.CodeNotFoundInStore, Message: domain.ErrNotFoundInStore.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: CodeNotFound, Message: domain.ErrNotFound.Error()}
	case errors.Is(err, domain.ErrInsufficientStock):
		msg := domain.ErrInsufficientStock.Error()
		if available, ok := domain.AvailableFrom(err); ok {
			msg = fmt.Sprintf("stock insuficiente, quedan %d unidades", available)
		}
		return fiber.StatusConflict, dto.ErrorResponse{Code: dto.CodeInsufficientStock, Message: msg}
	case errors.Is(err, domain.ErrStockTrackingDisabled):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: CodeModuleDisabled, Message: domain.ErrStockTrackingDisabled.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: CodeUnauthorized, Message: "el producto no pertenece a la tienda del token"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: CodeForbidden, Message: domain.ErrForbidden.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeInvalidInput, Message: err.Error()}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: dto.CodeInternal, Message: "error interno"}
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: CodeUnauthorized, Message: "token inválido"})
}
