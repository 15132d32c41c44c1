package registry

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
)

// Integration is the capability set every integration provides.
type Integration interface {
	Name() string
	Settings() *settings.Settings
	AttachSettings(*settings.Settings)
	IdentifierFields() identifier.Spec
	MatchFieldName(field, subfield string) string
}

// ProfileFetcher is an optional interface for integrations that can fetch a public profile.
type ProfileFetcher interface {
	FetchUserData(ctx context.Context, id identifier.Match) (map[string]any, error)
}

// ActivityFetcher is an optional interface for integrations that can fetch public activity.
type ActivityFetcher interface {
	FetchPublicActivity(ctx context.Context, id identifier.Match) (map[string]any, error)
}

// FieldProvider is an optional interface for integrations exposing field metadata.
type FieldProvider interface {
	AvailableFields(ctx context.Context, silenceErrors bool) ([]FieldDescriptor, error)
}

// FieldSorter is an optional interface; integrations returning true get their field
// labels ordered by key.
type FieldSorter interface {
	SortFieldsAlphabetically() bool
}

type FieldKind string

const (
	FieldScalar        FieldKind = "string"
	FieldBoolean       FieldKind = "boolean"
	FieldComposite     FieldKind = "object"
	FieldURLCollection FieldKind = "array_object"
)

// FieldDescriptor describes one field an integration can supply.
type FieldDescriptor struct {
	Name      string
	Kind      FieldKind
	Label     string
	SubFields []string
}

// Base carries the settings record and the default field naming rule. Integrations embed it.
type Base struct {
	settings atomic.Pointer[settings.Settings]
}

func (b *Base) Settings() *settings.Settings {
	return b.settings.Load()
}

func (b *Base) AttachSettings(s *settings.Settings) {
	b.settings.Store(s)
}

// MatchFieldName joins a composite field and its sub-field, e.g. name + givenName ->
// nameGivenName.
func (b *Base) MatchFieldName(field, subfield string) string {
	if subfield == "" {
		return field
	}
	return field + upperFirst(subfield)
}

// IdentifierFields defaults to a spec that never matches.
func (b *Base) IdentifierFields() identifier.Spec {
	return identifier.Spec{}
}

// Priority reads the ordering weight from the attached settings.
func Priority(i Integration) int {
	if s := i.Settings(); s != nil {
		return s.Priority
	}
	return 0
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
