// Package handlers contains the JSON API handlers split by domain.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/mktstack/integrationhub/internal/integrations/catalog"
	"github.com/mktstack/integrationhub/internal/integrations/locator"
	"github.com/mktstack/integrationhub/internal/integrations/profilesync"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
	"github.com/mktstack/integrationhub/internal/integrations/share"
	"github.com/mktstack/integrationhub/internal/leads"
	"github.com/mktstack/integrationhub/internal/store"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// Registry is the subset of the integration registry the API reads and edits.
type Registry interface {
	List(ctx context.Context, f registry.Filter) ([]registry.Integration, error)
	Get(ctx context.Context, name string) (registry.Integration, error)
	Descriptor(ctx context.Context, name string) (locator.Descriptor, error)
	IconPath(ctx context.Context, name string) (string, error)
	UpdateSettings(ctx context.Context, name string, update settings.Update) (*settings.Settings, error)
	BuiltAt() time.Time
	Invalidate()
}

type FieldCatalog interface {
	Build(ctx context.Context, opts catalog.Options) (*catalog.Catalog, error)
	ForIntegration(ctx context.Context, name string, opts catalog.Options) ([]catalog.Label, error)
	Invalidate()
}

type ShareButtons interface {
	Buttons(ctx context.Context) ([]share.Button, error)
	Invalidate()
}

type Profiles interface {
	Profiles(ctx context.Context, lead *leads.Lead, opts profilesync.Options) (profilesync.Result, error)
	ClearCache(ctx context.Context, lead *leads.Lead, name string) (leads.SocialCache, error)
}

type LeadStore interface {
	GetLead(ctx context.Context, id int64) (*leads.Lead, error)
}

// LeadLocker serializes refreshes of one lead. Optional.
type LeadLocker interface {
	WithLead(ctx context.Context, leadID int64, fn func(ctx context.Context) error) error
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Registry Registry
	Catalog  FieldCatalog
	Share    ShareButtons
	Profiles Profiles
	Leads    LeadStore
	Locker   LeadLocker
}

type errorResponse struct {
	Error     string   `json:"error"`
	Available []string `json:"available,omitempty"`
}

// RenderError maps domain errors to client responses. Anything unrecognized is logged
// and answered with a generic message.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	var unsupported *registry.UnsupportedLookupError
	switch {
	case errors.As(err, &unsupported):
		return c.JSON(http.StatusNotFound, errorResponse{
			Error:     fmt.Sprintf("integration %q is not available", unsupported.Name),
			Available: unsupported.Available,
		})
	case errors.Is(err, settings.ErrInvalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		return RenderNotFound(c)
	}
	return h.RenderInternalError(c, err)
}

// RenderInternalError returns a plain text error response.
func (h *Handlers) RenderInternalError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.String(http.StatusInternalServerError, msg)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

func renderBadRequest(c *echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func parsePositiveInt64Param(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("missing id")
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid id")
	}
	return parsed, nil
}

// parseBoolQuery accepts the usual truthy spellings.
func parseBoolQuery(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
