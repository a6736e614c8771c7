package echoapi

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// roleResolver finds the role of an id that carries no role claim.
type roleResolver interface {
	ResolveRole(ctx context.Context, id string) (core.Role, error)
}

// callerMiddleware turns the JWT claims into the core.Caller every entity action takes.
func callerMiddleware(resolver roleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Subject == "" {
				return errUnauthorized
			}

			role := claims.Role
			if !role.IsValid() {
				role, err = resolver.ResolveRole(ctx.Request().Context(), claims.Subject)
				if err != nil {
					if errors.Cause(err) == core.ErrNotFound {
						return errUnauthorized
					}
					return errors.Wrap(err, "resolving role")
				}
			}

			caller := core.Caller{ID: claims.Subject, Username: claims.Username, Role: role}
			ctx.Set(contextCallerKey, caller)
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(core.WithCaller(req.Context(), caller)))
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			caller, err := getContextCaller(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context caller")
			}
			if caller.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// timeoutMiddleware bounds the request context; datastore calls past it fail as timeouts.
func timeoutMiddleware(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if d <= 0 {
				return next(ctx)
			}
			c, cancel := context.WithTimeout(ctx.Request().Context(), d)
			defer cancel()
			ctx.SetRequest(ctx.Request().WithContext(c))
			return next(ctx)
		}
	}
}
