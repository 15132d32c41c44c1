package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
)

type capabilities struct {
	Profile  bool `json:"profile"`
	Activity bool `json:"activity"`
	Fields   bool `json:"fields"`
}

type integrationView struct {
	Name              string             `json:"name"`
	Namespace         string             `json:"namespace"`
	PluginID          int64              `json:"plugin_id"`
	PluginBundle      string             `json:"plugin_bundle"`
	Published         bool               `json:"is_published"`
	Priority          int                `json:"priority"`
	SupportedFeatures []settings.Feature `json:"supported_features"`
	Capabilities      capabilities       `json:"capabilities"`
	Icon              string             `json:"icon,omitempty"`
	Settings          *settings.Settings `json:"settings,omitempty"`
}

func (h *Handlers) integrationView(ctx context.Context, integration registry.Integration) (integrationView, error) {
	desc, err := h.Registry.Descriptor(ctx, integration.Name())
	if err != nil {
		return integrationView{}, err
	}
	view := integrationView{
		Name:              integration.Name(),
		Namespace:         desc.Namespace,
		PluginID:          desc.PluginID,
		PluginBundle:      desc.PluginBundle,
		Priority:          registry.Priority(integration),
		SupportedFeatures: []settings.Feature{},
	}
	if cfg := integration.Settings(); cfg != nil {
		view.Published = cfg.Published
		if len(cfg.SupportedFeatures) > 0 {
			view.SupportedFeatures = cfg.SupportedFeatures
		}
	}
	_, view.Capabilities.Profile = integration.(registry.ProfileFetcher)
	_, view.Capabilities.Activity = integration.(registry.ActivityFetcher)
	_, view.Capabilities.Fields = integration.(registry.FieldProvider)
	return view, nil
}

// HandleListIntegrations lists registered integrations. Query parameters narrow the list:
// feature (comma separated, any match), plugin, names, alphabetical.
func (h *Handlers) HandleListIntegrations(c *echo.Context) error {
	ctx := c.Request().Context()

	var filter registry.Filter
	for _, raw := range splitList(c.QueryParam("feature")) {
		f, ok := settings.ParseFeature(raw)
		if !ok {
			return renderBadRequest(c, "unknown feature "+raw)
		}
		filter.Features = append(filter.Features, f)
	}
	if raw := strings.TrimSpace(c.QueryParam("plugin")); raw != "" {
		id, err := parsePositiveInt64Param(raw)
		if err != nil {
			return renderBadRequest(c, "invalid plugin id")
		}
		filter.PluginID = id
	}
	filter.Names = splitList(c.QueryParam("names"))
	filter.Alphabetical = parseBoolQuery(c.QueryParam("alphabetical"))

	integrations, err := h.Registry.List(ctx, filter)
	if err != nil {
		return h.RenderError(c, err)
	}
	out := make([]integrationView, 0, len(integrations))
	for _, integration := range integrations {
		view, err := h.integrationView(ctx, integration)
		if err != nil {
			return h.RenderError(c, err)
		}
		out = append(out, view)
	}
	return c.JSON(http.StatusOK, out)
}

// HandleGetIntegration returns one integration with its masked settings.
func (h *Handlers) HandleGetIntegration(c *echo.Context) error {
	ctx := c.Request().Context()

	integration, err := h.Registry.Get(ctx, c.Param("name"))
	if err != nil {
		return h.RenderError(c, err)
	}
	view, err := h.integrationView(ctx, integration)
	if err != nil {
		return h.RenderError(c, err)
	}
	if view.Icon, err = h.Registry.IconPath(ctx, integration.Name()); err != nil {
		return h.RenderError(c, err)
	}
	if cfg := integration.Settings(); cfg != nil {
		masked := cfg.Masked()
		view.Settings = &masked
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handlers) HandleIntegrationIcon(c *echo.Context) error {
	path, err := h.Registry.IconPath(c.Request().Context(), c.Param("name"))
	if err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"icon": path})
}

// HandleUpdateSettings applies a partial settings edit. Blank api keys keep the stored
// secret. Caches derived from settings are dropped on success.
func (h *Handlers) HandleUpdateSettings(c *echo.Context) error {
	var update settings.Update
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		return renderBadRequest(c, "invalid settings payload")
	}

	saved, err := h.Registry.UpdateSettings(c.Request().Context(), c.Param("name"), update)
	if err != nil {
		return h.RenderError(c, err)
	}
	if h.Catalog != nil {
		h.Catalog.Invalidate()
	}
	if h.Share != nil {
		h.Share.Invalidate()
	}

	masked := saved.Masked()
	return c.JSON(http.StatusOK, masked)
}

type registryStatus struct {
	BuiltAt      *time.Time `json:"built_at"`
	Integrations int        `json:"integrations"`
	Published    int        `json:"published"`
}

// HandleRegistryStatus reports the current snapshot. Listing triggers a build when none exists.
func (h *Handlers) HandleRegistryStatus(c *echo.Context) error {
	list, err := h.Registry.List(c.Request().Context(), registry.Filter{})
	if err != nil {
		return h.RenderError(c, err)
	}
	status := registryStatus{Integrations: len(list)}
	for _, i := range list {
		if cfg := i.Settings(); cfg != nil && cfg.IsPublished() {
			status.Published++
		}
	}
	if at := h.Registry.BuiltAt(); !at.IsZero() {
		status.BuiltAt = &at
	}
	return c.JSON(http.StatusOK, status)
}
