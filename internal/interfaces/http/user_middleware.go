package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HeaderUserID cabecera con el usuario que registra el movimiento (lo fija el gateway).
const HeaderUserID = "X-User-ID"

// LocalUserID clave de c.Locals para el usuario.
const LocalUserID = "user_id"

// UserMiddleware copia X-User-ID a c.Locals. No autentica: el servicio confía en quien lo llama.
func UserMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user := strings.TrimSpace(c.Get(HeaderUserID)); user != "" {
			c.Locals(LocalUserID, user)
		}
		return c.Next()
	}
}

// GetUserID devuelve el usuario del contexto (vacío si no vino la cabecera).
func GetUserID(c *fiber.Ctx) string {
	v := c.Locals(LocalUserID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
