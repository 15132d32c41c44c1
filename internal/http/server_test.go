package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/mktstack/integrationhub/internal/http/handlers"
	"github.com/mktstack/integrationhub/internal/integrations/locator"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
)

type emptyRegistry struct{}

func (emptyRegistry) List(context.Context, registry.Filter) ([]registry.Integration, error) {
	return nil, nil
}

func (emptyRegistry) Get(_ context.Context, name string) (registry.Integration, error) {
	return nil, &registry.UnsupportedLookupError{Name: name}
}

func (emptyRegistry) Descriptor(_ context.Context, name string) (locator.Descriptor, error) {
	return locator.Descriptor{}, &registry.UnsupportedLookupError{Name: name}
}

func (emptyRegistry) IconPath(context.Context, string) (string, error) {
	return registry.GenericIconPath, nil
}

func (emptyRegistry) UpdateSettings(_ context.Context, name string, _ settings.Update) (*settings.Settings, error) {
	return nil, &registry.UnsupportedLookupError{Name: name}
}

func (emptyRegistry) Invalidate() {}

func (emptyRegistry) BuiltAt() time.Time { return time.Time{} }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPErrorHandlerInternalErrorIsGeneric(t *testing.T) {
	e := echo.New()
	e.Logger = discardLogger()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(handlers.ContextKeyRequestID, "req-123")

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, errors.New("very sensitive error"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusInternalServerError)
	}

	body := rec.Body.String()
	if strings.Contains(body, "very sensitive") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if !strings.Contains(body, "Internal server error") {
		t.Fatalf("response missing generic message: %q", body)
	}
	if !strings.Contains(body, "Reference: req-123") {
		t.Fatalf("response missing request reference: %q", body)
	}
	if !strings.Contains(body, "Code: "+handlers.InternalErrorCode) {
		t.Fatalf("response missing error code: %q", body)
	}
}

func TestHTTPErrorHandlerNotFoundDoesNotLeakMessage(t *testing.T) {
	e := echo.New()
	e.Logger = discardLogger()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusNotFound, "leaky not found"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}

	body := rec.Body.String()
	if strings.Contains(body, "leaky") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if !strings.Contains(body, "404 page not found") {
		t.Fatalf("response missing not found message: %q", body)
	}
}

func TestHTTPErrorHandlerUnsupportedLookupIsNotFound(t *testing.T) {
	e := echo.New()
	e.Logger = discardLogger()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/integrations/Nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, &registry.UnsupportedLookupError{Name: "Nope", Available: []string{"Twitter"}})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "Twitter") {
		t.Fatalf("response missing available integrations: %q", rec.Body.String())
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	if got := httpStatusFromError(echo.ErrNotFound); got != http.StatusNotFound {
		t.Fatalf("status=%d want %d", got, http.StatusNotFound)
	}
	if got := httpStatusFromError(echo.ErrForbidden); got != http.StatusForbidden {
		t.Fatalf("status=%d want %d", got, http.StatusForbidden)
	}
	if got := httpStatusFromError(echo.ErrMethodNotAllowed); got != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want %d", got, http.StatusMethodNotAllowed)
	}
	if got := httpStatusFromError(fmt.Errorf("route: %w", echo.ErrNotFound)); got != http.StatusNotFound {
		t.Fatalf("wrapped status=%d want %d", got, http.StatusNotFound)
	}
	if got := httpStatusFromError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", got, http.StatusInternalServerError)
	}
}

func TestHTTPErrorHandlerBadRequestUsesStatusText(t *testing.T) {
	e := echo.New()
	e.Logger = discardLogger()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/bad", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusBadRequest, "leaky bad request"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusBadRequest)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != http.StatusText(http.StatusBadRequest) {
		t.Fatalf("body=%q want %q", got, http.StatusText(http.StatusBadRequest))
	}
}

func TestNewEchoServerRequiresRegistry(t *testing.T) {
	if _, err := NewEchoServer(&handlers.Handlers{}, discardLogger()); err == nil {
		t.Fatalf("NewEchoServer() error = nil, want error")
	}
}

func TestRoutesAssignRequestID(t *testing.T) {
	es, err := NewEchoServer(&handlers.Handlers{Registry: emptyRegistry{}}, discardLogger())
	if err != nil {
		t.Fatalf("NewEchoServer() error = %v", err)
	}

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		es.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d want %d", rec.Code, http.StatusOK)
		}
		if rec.Header().Get(headerRequestID) == "" {
			t.Fatalf("response missing %s", headerRequestID)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(headerRequestID, "abc-1")
		rec := httptest.NewRecorder()
		es.ServeHTTP(rec, req)
		if got := rec.Header().Get(headerRequestID); got != "abc-1" {
			t.Fatalf("request id=%q want abc-1", got)
		}
	})
}

func TestRoutesUnknownIntegrationReturnsJSON404(t *testing.T) {
	es, err := NewEchoServer(&handlers.Handlers{Registry: emptyRegistry{}}, discardLogger())
	if err != nil {
		t.Fatalf("NewEchoServer() error = %v", err)
	}

	rec := httptest.NewRecorder()
	es.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/integrations/Nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if !strings.Contains(body["error"].(string), "Nope") {
		t.Fatalf("body=%v", body)
	}
}

func TestRoutesWithoutLeadStoreAreNotMounted(t *testing.T) {
	es, err := NewEchoServer(&handlers.Handlers{Registry: emptyRegistry{}}, discardLogger())
	if err != nil {
		t.Fatalf("NewEchoServer() error = %v", err)
	}

	rec := httptest.NewRecorder()
	es.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leads/1/social", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRoutesRouterErrorsAreNotInternal(t *testing.T) {
	var logs strings.Builder
	es, err := NewEchoServer(&handlers.Handlers{Registry: emptyRegistry{}}, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("NewEchoServer() error = %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "unknown path", method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPost, path: "/healthz", want: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			es.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("status=%d want %d", rec.Code, tt.want)
			}
			if strings.Contains(rec.Body.String(), handlers.InternalErrorCode) {
				t.Fatalf("router error rendered as internal: %q", rec.Body.String())
			}
		})
	}
	if strings.Contains(logs.String(), "http error") {
		t.Fatalf("router errors should not be logged as internal errors: %s", logs.String())
	}
}
