package router

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/api/http/apierror"
	httpctx "github.com/dtroode/medisupply-security/internal/api/http/context"
	"github.com/dtroode/medisupply-security/internal/api/http/handler"
	"github.com/dtroode/medisupply-security/internal/api/http/middleware"
	"github.com/dtroode/medisupply-security/internal/guard"
	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/metrics"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/service"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Auth      *service.Auth
	Customers *service.Customers
	Tokens    *service.TokenService
	Health    *service.Health
	// Users backs the active-user check and should be the same store the
	// services use.
	Users model.UserStore
}

// Router represents the HTTP router of the service.
type Router struct {
	services       Services
	contextManager *httpctx.Manager
	metrics        *metrics.Metrics
	rateLimiter    *middleware.RateLimiter
	trustedProxies []string
	build          handler.BuildInfo
	ttl            service.TokenTTL
	logger         *logger.Logger
}

// New creates a new Router instance. A nil rateLimiter disables login throttling.
// Forwarding headers are honoured only from trustedProxies (IPs or CIDRs);
// with none, the client IP is always the peer address.
func New(
	services Services,
	contextManager *httpctx.Manager,
	metrics *metrics.Metrics,
	rateLimiter *middleware.RateLimiter,
	trustedProxies []string,
	build handler.BuildInfo,
	ttl service.TokenTTL,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		contextManager: contextManager,
		metrics:        metrics,
		rateLimiter:    rateLimiter,
		trustedProxies: trustedProxies,
		build:          build,
		ttl:            ttl,
		logger:         logger,
	}
}

// Register builds the gin engine with all routes and middleware.
func (r *Router) Register() (*gin.Engine, error) {
	handler.RegisterValidations()

	engine := gin.New()
	if err := engine.SetTrustedProxies(r.trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(
		middleware.RequestID(r.contextManager),
		middleware.NewLogging(r.logger).HandleHTTP,
		middleware.Metrics(r.metrics),
		middleware.Recovery(r.logger),
	)
	engine.NoRoute(func(c *gin.Context) {
		apierror.Abort(c, model.ErrNotFound)
	})

	r.registerMonitoringRoutes(engine)
	r.registerAuthRoutes(engine)
	r.registerCustomerRoutes(engine)

	return engine, nil
}

func (r *Router) registerMonitoringRoutes(engine *gin.Engine) {
	h := handler.NewHealth(r.services.Health, r.build, r.ttl.Access, r.ttl.Refresh)

	engine.GET("/health", h.Health)
	engine.GET("/info", h.Info)
	engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))
}

func (r *Router) registerAuthRoutes(engine *gin.Engine) {
	h := handler.NewAuth(r.services.Auth, r.contextManager, r.metrics, r.logger)
	authenticate := middleware.NewAuthenticate(r.services.Tokens, r.contextManager, r.logger)
	active := middleware.Guard(guard.RequireActive(r.services.Users), r.contextManager)

	auth := engine.Group("/auth")
	{
		auth.POST("/login", r.rateLimiter.Handler(), h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", authenticate.HandleHTTP, h.Logout)
		auth.GET("/me", authenticate.HandleHTTP, active, h.Me)
	}
}

func (r *Router) registerCustomerRoutes(engine *gin.Engine) {
	h := handler.NewCustomer(r.services.Customers, r.contextManager, r.logger)
	authenticate := middleware.NewAuthenticate(r.services.Tokens, r.contextManager, r.logger)

	verified := middleware.Guard(guard.Chain(
		guard.RequireActive(r.services.Users),
		guard.RequireMFA(),
	), r.contextManager)
	admin := middleware.Guard(guard.Chain(
		guard.RequireActive(r.services.Users),
		guard.RequireRole(model.RoleAdmin),
	), r.contextManager)

	customers := engine.Group("/customers", authenticate.HandleHTTP)
	{
		customers.POST("", verified, h.Create)
		customers.GET("", verified, h.List)
		customers.GET("/:id", verified, h.Get)
		customers.DELETE("/:id", admin, h.Delete)
	}
}
