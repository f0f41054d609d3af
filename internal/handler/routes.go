package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/sumire/consultdesk/internal/logging"
)

const (
	requestBodyLimit = "1M"

	limiterSweepInterval = time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Logger   *slog.Logger
	Auth     AuthService
	Clients  ClientService
	Projects ProjectService
	Tickets  TicketService
	DB       Pinger

	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int

	// Context bounds background work such as rate limiter sweeps. When nil
	// no sweeping runs.
	Context context.Context
}

// NewServer builds the echo instance with middleware and every route.
func NewServer(deps Dependencies) *echo.Echo {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()

	// Request ID first so every log line carries it.
	e.Use(RequestID())
	e.Use(RequestLogger(deps.Logger))
	e.Use(echomiddleware.RecoverWithConfig(echomiddleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logging.FromContext(c.Request().Context()).Error("panic recovered",
				"error", err,
				"stack", string(stack),
			)
			return err
		},
	}))
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/ready", readiness(deps.DB))

	authHandler := NewAuthHandler(deps.Auth)
	clientHandler := NewClientHandler(deps.Clients)
	projectHandler := NewProjectHandler(deps.Projects)
	ticketHandler := NewTicketHandler(deps.Tickets)

	api := e.Group("/api")

	strictLimiter := NewStrictRateLimiter()
	userLimiter := NewRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst, KeyByUser)
	if deps.Context != nil {
		go strictLimiter.Run(deps.Context, limiterSweepInterval, limiterIdleTTL)
		go userLimiter.Run(deps.Context, limiterSweepInterval, limiterIdleTTL)
	}

	auth := api.Group("/auth", strictLimiter.Middleware())
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/google", authHandler.GoogleRedirect)
	auth.GET("/google/callback", authHandler.GoogleCallback)
	auth.GET("/github", authHandler.GitHubRedirect)
	auth.GET("/github/callback", authHandler.GitHubCallback)

	protected := api.Group("", JWTAuth(deps.Auth), userLimiter.Middleware())

	protected.GET("/auth/me", authHandler.Me)

	protected.GET("/clients", clientHandler.List)
	protected.POST("/clients", clientHandler.Create)
	protected.GET("/clients/:id", clientHandler.Get)
	protected.PUT("/clients/:id", clientHandler.Update)
	protected.DELETE("/clients/:id", clientHandler.Delete)

	protected.GET("/projects", projectHandler.List)
	protected.POST("/projects", projectHandler.Create)
	protected.GET("/projects/:id", projectHandler.Get)
	protected.PUT("/projects/:id", projectHandler.Update)
	protected.DELETE("/projects/:id", projectHandler.Delete)

	// Registered before /tickets/:id; echo prefers static segments anyway.
	protected.GET("/tickets/stats", ticketHandler.Stats)
	protected.GET("/tickets", ticketHandler.List)
	protected.POST("/tickets", ticketHandler.Create)
	protected.GET("/tickets/:id", ticketHandler.Get)
	protected.PUT("/tickets/:id", ticketHandler.Update)
	protected.DELETE("/tickets/:id", ticketHandler.Delete)

	return e
}

func readiness(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
		}
		if err := db.PingContext(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Warn("readiness check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
}
