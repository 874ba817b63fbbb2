// Package http defines what the router needs from the composition root and
// the contract each domain module implements to mount its routes.
package http

import (
	"context"

	"leadbot_backend/platform/config"
	"leadbot_backend/platform/httpkit"
	"leadbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module is a domain module with HTTP routes (leads, sessions, notifications).
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is handed to every module during route registration.
type RouterContext struct {
	// V1 is /api/v1 behind the per-IP limiter but without auth.
	V1                 *gin.RouterGroup
	// Protected is V1 behind AuthRequired. Handlers still resolve the tenant
	// with httpkit.MustGetTenant.
	Protected          *gin.RouterGroup
	SessionRateLimiter *httpkit.SessionRateLimiter
}

type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/ready; *pgxpool.Pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what cmd/api assembles and passes to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
