package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-api/internal/application/dto"
	"github.com/jhoicas/caja-api/internal/domain/authz"
	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/pkg/jwt"
)

// LocalCaller key de Fiber Locals donde queda el entity.Caller autenticado.
const LocalCaller = "caller"

// AuthMiddleware valida el Bearer Token JWT y deja el llamador (identidad + privilegios) en c.Locals.
// Si el token no trae privilegios se usan los por defecto del tipo de cuenta; las claves desconocidas se descartan.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
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
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalCaller, callerFromClaims(claims))
		return c.Next()
	}
}

func callerFromClaims(claims *jwt.Claims) entity.Caller {
	privs := make(map[string]bool)
	source := claims.Privileges
	if len(source) == 0 {
		source = authz.DefaultPrivileges(claims.AccountType)
	}
	for k, v := range source {
		if authz.IsKnownPrivilege(k) {
			privs[k] = v
		}
	}
	return entity.Caller{
		UserID:         claims.UserID,
		Name:           claims.Name,
		AccountType:    claims.AccountType,
		RegisterNumber: claims.RegisterNumber,
		Privileges:     privs,
	}
}

// GetCaller devuelve el llamador del contexto (después del middleware de auth). Vacío si no hay.
func GetCaller(c *fiber.Ctx) entity.Caller {
	caller, _ := c.Locals(LocalCaller).(entity.Caller)
	return caller
}

// RequirePrivilege corta con 403 si el llamador no tiene el privilegio (o ALL).
// Debe usarse DESPUÉS de AuthMiddleware.
func RequirePrivilege(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := GetCaller(c)
		if caller.UserID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
		}
		if !authz.Has(caller, key) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "privilegio requerido: " + key,
			})
		}
		return c.Next()
	}
}
