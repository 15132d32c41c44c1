// Package share renders the share buttons of published integrations.
package share

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
	"github.com/mktstack/integrationhub/internal/metrics"
)

// Source lists integrations in alphabetical order.
type Source interface {
	List(ctx context.Context, f registry.Filter) ([]registry.Integration, error)
}

// Renderer turns a template id and a settings mapping into markup.
type Renderer interface {
	Render(ctx context.Context, templateID string, settings map[string]any) (string, error)
}

// TemplateID returns <bundle>:Integration/<name>:share.
func TemplateID(bundle, name string) string {
	return bundle + ":Integration/" + name + ":share"
}

// Button is one rendered share button.
type Button struct {
	Integration string `json:"integration"`
	HTML        string `json:"html"`
}

// Service renders every share button once and serves the result until Invalidate.
type Service struct {
	source   Source
	renderer Renderer
	logger   *slog.Logger

	mu      sync.Mutex
	buttons []Button
	built   bool
}

func NewService(source Source, renderer Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, renderer: renderer, logger: logger}
}

func (s *Service) Invalidate() {
	s.mu.Lock()
	s.buttons, s.built = nil, false
	s.mu.Unlock()
	metrics.CacheInvalidationsTotal.WithLabelValues("share_buttons").Inc()
}

// Buttons renders one button per published share_button integration, alphabetically. A
// button that fails to render is logged and left out.
func (s *Service) Buttons(ctx context.Context) ([]Button, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built {
		return s.buttons, nil
	}

	integrations, err := s.source.List(ctx, registry.Filter{
		Features:     []settings.Feature{settings.FeatureShareButton},
		Alphabetical: true,
	})
	if err != nil {
		return nil, err
	}

	buttons := make([]Button, 0, len(integrations))
	for _, integration := range integrations {
		cfg := integration.Settings()
		if !cfg.IsPublished() {
			continue
		}
		html, err := s.renderer.Render(ctx, TemplateID(cfg.PluginBundle, integration.Name()), shareSettings(cfg))
		if err != nil {
			s.logger.Warn("share button render failed", "integration", integration.Name(), "error", err)
			continue
		}
		buttons = append(buttons, Button{Integration: integration.Name(), HTML: html})
	}

	s.buttons, s.built = buttons, true
	return buttons, nil
}

// shareSettings copies featureSettings["shareButton"] and adds the api keys under "keys".
func shareSettings(cfg *settings.Settings) map[string]any {
	out := map[string]any{}
	if raw, ok := cfg.FeatureSettings["shareButton"].(map[string]any); ok {
		maps.Copy(out, raw)
	}
	keys := make(map[string]string, len(cfg.APIKeys))
	maps.Copy(keys, cfg.APIKeys)
	out["keys"] = keys
	return out
}

// TemplRenderer renders templ components registered by template id.
type TemplRenderer struct {
	components map[string]func(map[string]any) templ.Component
}

func NewTemplRenderer() *TemplRenderer {
	return &TemplRenderer{components: map[string]func(map[string]any) templ.Component{}}
}

// Register adds a component for templateID, replacing any previous one.
func (r *TemplRenderer) Register(templateID string, component func(map[string]any) templ.Component) {
	r.components[templateID] = component
}

// Render looks the id up exactly, then by its part after the bundle so components keep
// working when a plugin bundle is renamed.
func (r *TemplRenderer) Render(ctx context.Context, templateID string, settings map[string]any) (string, error) {
	component, ok := r.components[templateID]
	if !ok {
		component, ok = r.lookupUnbundled(templateID)
	}
	if !ok {
		return "", fmt.Errorf("share template %q not found", templateID)
	}
	var buf bytes.Buffer
	if err := component(settings).Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", templateID, err)
	}
	return buf.String(), nil
}

func (r *TemplRenderer) lookupUnbundled(templateID string) (func(map[string]any) templ.Component, bool) {
	_, rest, found := strings.Cut(templateID, ":")
	if !found {
		return nil, false
	}
	for id, component := range r.components {
		if _, other, ok := strings.Cut(id, ":"); ok && other == rest {
			return component, true
		}
	}
	return nil, false
}
