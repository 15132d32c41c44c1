package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/mktstack/integrationhub/internal/integrations/social"
)

type socialPatternsView struct {
	Services  []string            `json:"services"`
	Find      map[string][]string `json:"find"`
	Templates map[string]string   `json:"templates"`
	// Placeholder is the token ProfileURL replaces in a template.
	Placeholder string `json:"placeholder"`
}

// HandleSocialPatterns exposes both views of the social profile table: the expressions that
// capture a handle from a profile URL and the templates that build one back.
func (h *Handlers) HandleSocialPatterns(c *echo.Context) error {
	return c.JSON(http.StatusOK, socialPatternsView{
		Services:    social.Services(),
		Find:        social.FindPatterns(),
		Templates:   social.URLTemplates(),
		Placeholder: social.HandlePlaceholder,
	})
}

type profileLinkView struct {
	Service string `json:"service"`
	Handle  string `json:"handle"`
	URL     string `json:"url"`
}

// HandleSocialProfileLink resolves a handle or profile URL into a canonical profile link.
// Without a service the URL is matched against every service in table order.
func (h *Handlers) HandleSocialProfileLink(c *echo.Context) error {
	service := c.QueryParam("service")
	value := c.QueryParam("value")
	if value == "" {
		return renderBadRequest(c, "value is required")
	}

	handle := value
	if service == "" {
		s, hdl, ok := social.DetectHandle(value)
		if !ok {
			return RenderNotFound(c)
		}
		service, handle = s, hdl
	} else if hdl, ok := social.ExtractHandle(service, value); ok {
		handle = hdl
	}

	link, ok := social.ProfileURL(service, handle)
	if !ok {
		return RenderNotFound(c)
	}
	return c.JSON(http.StatusOK, profileLinkView{Service: service, Handle: handle, URL: link})
}
