package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/mktstack/integrationhub/internal/integrations/catalog"
)

// catalogOptions silences field provider errors unless the caller passes silence=0.
func catalogOptions(c *echo.Context) catalog.Options {
	raw := strings.TrimSpace(c.QueryParam("silence"))
	return catalog.Options{SilenceFieldErrors: raw == "" || parseBoolQuery(raw)}
}

// HandleFields returns the label catalog of every integration in registry order.
func (h *Handlers) HandleFields(c *echo.Context) error {
	built, err := h.Catalog.Build(c.Request().Context(), catalogOptions(c))
	if err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, built)
}

func (h *Handlers) HandleIntegrationFields(c *echo.Context) error {
	labels, err := h.Catalog.ForIntegration(c.Request().Context(), c.Param("name"), catalogOptions(c))
	if err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, labels)
}

func (h *Handlers) HandleShareButtons(c *echo.Context) error {
	buttons, err := h.Share.Buttons(c.Request().Context())
	if err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, buttons)
}

// HandleInvalidateCaches drops the registry, field catalog and share button caches.
func (h *Handlers) HandleInvalidateCaches(c *echo.Context) error {
	h.Registry.Invalidate()
	if h.Catalog != nil {
		h.Catalog.Invalidate()
	}
	if h.Share != nil {
		h.Share.Invalidate()
	}
	return c.NoContent(http.StatusNoContent)
}
