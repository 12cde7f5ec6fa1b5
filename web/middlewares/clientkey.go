package middlewares

import (
	"github.com/labstack/echo/v4"

	"vibelink/core/ratelimit"
)

const ClientKeyContextKey = "ratelimit_client_key"

// ResolveClientKey hashes the request's originating IP into the
// rate-limit client key before the handler runs, so raw addresses
// never travel further than this middleware.
func ResolveClientKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}

		c.Set(ClientKeyContextKey, ratelimit.ClientKey(ip))

		return next(c)
	}
}

// ClientKey pulls the resolved key back out of the request context.
func ClientKey(c echo.Context) string {
	key, ok := c.Get(ClientKeyContextKey).(string)
	if !ok {
		return ratelimit.ClientKey("unknown")
	}

	return key
}
