package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/profilesync"
	"github.com/mktstack/integrationhub/internal/leads"
)

func (h *Handlers) withLead(ctx context.Context, leadID int64, fn func(ctx context.Context) error) error {
	if h.Locker == nil {
		return fn(ctx)
	}
	return h.Locker.WithLead(ctx, leadID, fn)
}

// HandleLeadSocial returns the stored social cache of a lead without fetching.
func (h *Handlers) HandleLeadSocial(c *echo.Context) error {
	leadID, err := parsePositiveInt64Param(c.Param("id"))
	if err != nil {
		return renderBadRequest(c, err.Error())
	}
	lead, err := h.Leads.GetLead(c.Request().Context(), leadID)
	if err != nil {
		return h.RenderError(c, err)
	}
	result, err := h.Profiles.Profiles(c.Request().Context(), lead, profilesync.Options{
		Integration:    c.QueryParam("integration"),
		ReturnSettings: parseBoolQuery(c.QueryParam("settings")),
	})
	if err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleLeadSocialRefresh fetches fresh profile data for a lead and persists it unless
// persist=0 is passed.
func (h *Handlers) HandleLeadSocialRefresh(c *echo.Context) error {
	leadID, err := parsePositiveInt64Param(c.Param("id"))
	if err != nil {
		return renderBadRequest(c, err.Error())
	}
	opts := profilesync.Options{
		Integration:    c.QueryParam("integration"),
		Refresh:        true,
		ReturnSettings: parseBoolQuery(c.QueryParam("settings")),
	}
	if raw := c.QueryParam("persist"); raw != "" {
		opts.SkipPersist = !parseBoolQuery(raw)
	}
	fields, err := decodeRefreshFields(c)
	if err != nil {
		return renderBadRequest(c, "invalid fields payload")
	}
	opts.Fields = fields

	var result profilesync.Result
	run := func(ctx context.Context) error {
		lead, err := h.Leads.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		result, err = h.Profiles.Profiles(ctx, lead, opts)
		return err
	}
	if err := h.withLead(c.Request().Context(), leadID, run); err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type refreshRequest struct {
	Fields *identifier.FieldSet `json:"fields"`
}

// decodeRefreshFields reads the optional {"fields": {...}} body. An empty body keeps the
// lead's stored fields.
func decodeRefreshFields(c *echo.Context) (*identifier.FieldSet, error) {
	body := c.Request().Body
	if body == nil || body == http.NoBody {
		return nil, nil
	}
	var req refreshRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return req.Fields, nil
}

// HandleLeadSocialClear drops one integration's cache entry, or all of them.
func (h *Handlers) HandleLeadSocialClear(c *echo.Context) error {
	leadID, err := parsePositiveInt64Param(c.Param("id"))
	if err != nil {
		return renderBadRequest(c, err.Error())
	}

	var cache leads.SocialCache
	run := func(ctx context.Context) error {
		lead, err := h.Leads.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		cache, err = h.Profiles.ClearCache(ctx, lead, c.Param("integration"))
		return err
	}
	if err := h.withLead(c.Request().Context(), leadID, run); err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, profilesync.Result{Cache: cache})
}
