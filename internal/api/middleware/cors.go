package middleware

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SecureCORS configures CORS from the allowed-origins list. In production a
// wildcard origin is rejected and the request falls back to same-origin only.
func SecureCORS(allowedOrigins []string, appEnv string, logger *slog.Logger) echo.MiddlewareFunc {
	isProduction := appEnv == "production"

	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			if isProduction {
				logger.Warn("wildcard CORS origin rejected in production")
				continue
			}
			logger.Warn("wildcard CORS origin enabled, do not use in production")
		}
		origins = append(origins, origin)
	}

	if len(origins) == 0 {
		if isProduction {
			logger.Warn("no CORS origins configured, cross-origin requests will be rejected")
		}
		origins = []string{"http://localhost:3000"}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           3600,
	})
}
