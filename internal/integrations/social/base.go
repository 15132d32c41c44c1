package social

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mktstack/integrationhub/internal/integrations/registry"
)

// Namespace is the plugin namespace the built-in integrations are registered under.
const Namespace = "SocialBundle"

// socialIntegration is the shared part of the built-in integrations.
type socialIntegration struct {
	registry.Base
	name   string
	http   *http.Client
	logger *slog.Logger
}

func newSocialIntegration(name string, deps registry.Deps) socialIntegration {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return socialIntegration{
		name:   name,
		http:   deps.HTTP,
		logger: logger.With("integration", name),
	}
}

func (s *socialIntegration) Name() string { return s.name }

// apiKey reads a stored key, trimmed. Missing settings yield "".
func (s *socialIntegration) apiKey(name string) string {
	settings := s.Settings()
	if settings == nil {
		return ""
	}
	return strings.TrimSpace(settings.APIKeys[name])
}

func (s *socialIntegration) client(baseURL, token string) *apiClient {
	return &apiClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    s.http,
		Service: strings.ToLower(s.name),
	}
}

// handleFrom accepts either a bare handle or a profile URL of service.
func handleFrom(service, value string) string {
	value = strings.TrimSpace(value)
	if h, ok := ExtractHandle(service, value); ok {
		return h
	}
	return strings.TrimPrefix(value, "@")
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// compact drops empty strings and nils so empty results read as no data.
func compact(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
		case string:
			if t == "" {
				delete(m, k)
			}
		case map[string]any:
			if len(compact(t)) == 0 {
				delete(m, k)
			}
		case []any:
			if len(t) == 0 {
				delete(m, k)
			}
		}
	}
	return m
}
