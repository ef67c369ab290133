package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
)

// RequireModule devuelve un middleware Fiber que verifica si la tienda del token JWT
// tiene el módulo activo. Debe usarse DESPUÉS de AuthMiddleware (necesita LocalStoreID).
//
// Comportamiento:
//   - 403 Forbidden  → módulo no contratado o vencido.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la DB.
//   - Si no hay store_id en el contexto, responde 401 (el AuthMiddleware debería haberlo puesto).
func RequireModule(moduleName string, checker inventory.ModuleChecker, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID := GetStoreID(c)
		if storeID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "store_id no encontrado en el token",
			})
		}

		active, err := checker.HasActiveModule(c.UserContext(), storeID, moduleName)
		if err != nil {
			log.Error().Err(err).Str("store_id", storeID).Str("module", moduleName).Msg("verificación de módulo")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "MODULE_CHECK_FAILED",
				Message: "no se pudo verificar el módulo, intente más tarde",
			})
		}

		if !active {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    CodeModuleDisabled,
				Message: "el módulo '" + moduleName + "' no está activo para esta tienda",
			})
		}

		return c.Next()
	}
}
