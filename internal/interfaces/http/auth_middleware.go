package http

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/pkg/jwt"
)

// Locals keys para el integrador autenticado.
const (
	LocalClientID = "client_id"
	LocalScope    = "scope"
)

// Scopes de los tokens de integrador.
const (
	ScopeCFDI  = "cfdi"
	ScopeAdmin = "admin"
)

// AuthMiddleware valida el Bearer Token JWT y deja client_id y scope en c.Locals.
// Con secret vacío la API queda abierta (desarrollo local).
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtSecret == "" {
			return c.Next()
		}
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		clientID, scope, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalClientID, clientID)
		c.Locals(LocalScope, scope)
		return c.Next()
	}
}

// RequireScope autoriza solo tokens con alguno de los scopes indicados.
// Debe usarse DESPUÉS de AuthMiddleware.
func RequireScope(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope := GetScope(c)
		if scope == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_SCOPE", Message: "el token no declara scope"})
		}
		if !slices.Contains(allowed, scope) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "scope '" + scope + "' sin acceso a este recurso"})
		}
		return c.Next()
	}
}

// GetClientID devuelve el integrador del contexto (después del middleware de auth).
func GetClientID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalClientID).(string)
	return s
}

// GetScope devuelve el scope del token.
func GetScope(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalScope).(string)
	return s
}
