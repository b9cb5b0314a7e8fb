package auth

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// Ward staff roles carried in the token's roles claim.
const (
	RoleAdmin     = "admin"
	RolePhysician = "physician"
	RoleNurse     = "nurse"
	RoleRegistrar = "registrar"
)

// RequireRole admits requests whose actor holds at least one of roles.
// Requests without an actor are rejected with 401; admin passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, ok := ActorFromContext(ctx); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			held := RolesFromContext(ctx)
			if slices.Contains(held, RoleAdmin) {
				return next(c)
			}
			for _, r := range roles {
				if slices.Contains(held, r) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
