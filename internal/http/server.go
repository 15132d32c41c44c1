package httpapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/mktstack/integrationhub/internal/http/handlers"
)

const headerRequestID = "X-Request-ID"

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo

	mu  sync.Mutex
	srv *http.Server
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(h *handlers.Handlers, logger *slog.Logger) (*EchoServer, error) {
	if h == nil || h.Registry == nil {
		return nil, errors.New("handlers require a registry")
	}
	if logger == nil {
		logger = slog.Default()
	}
	es := &EchoServer{h: h, e: echo.New()}
	es.e.Logger = logger
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.e.Use(middleware.Recover())
	es.e.Use(requestID)
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)

	api := es.e.Group("/api")
	api.GET("/integrations", es.h.HandleListIntegrations)
	api.GET("/integrations/:name", es.h.HandleGetIntegration)
	api.GET("/integrations/:name/icon", es.h.HandleIntegrationIcon)
	api.PUT("/integrations/:name/settings", es.h.HandleUpdateSettings)
	api.GET("/registry", es.h.HandleRegistryStatus)
	api.POST("/cache/invalidate", es.h.HandleInvalidateCaches)
	api.GET("/social-patterns", es.h.HandleSocialPatterns)
	api.GET("/social-patterns/link", es.h.HandleSocialProfileLink)

	if es.h.Catalog != nil {
		api.GET("/fields", es.h.HandleFields)
		api.GET("/integrations/:name/fields", es.h.HandleIntegrationFields)
	}
	if es.h.Share != nil {
		api.GET("/share-buttons", es.h.HandleShareButtons)
	}
	if es.h.Profiles != nil && es.h.Leads != nil {
		api.GET("/leads/:id/social", es.h.HandleLeadSocial)
		api.POST("/leads/:id/social/refresh", es.h.HandleLeadSocialRefresh)
		api.DELETE("/leads/:id/social", es.h.HandleLeadSocialClear)
		api.DELETE("/leads/:id/social/:integration", es.h.HandleLeadSocialClear)
	}
}

// ServeHTTP lets the server be mounted or exercised directly.
func (es *EchoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	es.e.ServeHTTP(w, r)
}

// StartServer serves on the given http.Server until it is shut down.
func (es *EchoServer) StartServer(server *http.Server) error {
	server.Handler = es.e
	es.mu.Lock()
	es.srv = server
	es.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (es *EchoServer) Shutdown(ctx context.Context) error {
	es.mu.Lock()
	srv := es.srv
	es.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(headerRequestID, id)
		return next(c)
	}
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := httpStatusFromError(err)
	switch {
	case status == http.StatusNotFound:
		_ = handlers.RenderNotFound(c)
	case status >= 400 && status < 500:
		_ = c.String(status, http.StatusText(status))
	default:
		_ = es.h.RenderError(c, err)
	}
}

// httpStatusFromError returns the status carried by echo errors, or 500. Router errors such as
// echo.ErrNotFound are not *echo.HTTPError values, so match on the status coder interface.
func httpStatusFromError(err error) int {
	var sc echo.HTTPStatusCoder
	if errors.As(err, &sc) && sc.StatusCode() != 0 {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
