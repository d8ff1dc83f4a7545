package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/user"
)

// kindMiddleware only lets through principals of the given kinds.
func kindMiddleware(kinds ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			for _, kind := range kinds {
				if p.Kind == kind {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return kindMiddleware(user.KindAdmin)
}
