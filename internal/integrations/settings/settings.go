package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mktstack/integrationhub/internal/normalize"
)

// Feature is a capability label an integration declares support for.
type Feature string

const (
	FeaturePublicProfile  Feature = "public_profile"
	FeaturePublicActivity Feature = "public_activity"
	FeatureShareButton    Feature = "share_button"
	FeatureLoginButton    Feature = "login_button"
)

const (
	minPriority = -1000
	maxPriority = 1000
)

var knownFeatures = []Feature{
	FeaturePublicProfile,
	FeaturePublicActivity,
	FeatureShareButton,
	FeatureLoginButton,
}

// ParseFeature normalizes a raw feature label.
func ParseFeature(raw string) (Feature, bool) {
	f := Feature(normalize.Key(raw))
	if slices.Contains(knownFeatures, f) {
		return f, true
	}
	return "", false
}

// Settings is the persisted configuration of one integration. The registry holds a
// pointer to it; the store owns its lifecycle.
type Settings struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Published         bool              `json:"is_published"`
	SupportedFeatures []Feature         `json:"supported_features"`
	FeatureSettings   map[string]any    `json:"feature_settings"`
	APIKeys           map[string]string `json:"api_keys"`
	Priority          int               `json:"priority"`
	PluginID          int64             `json:"plugin_id"`
	PluginBundle      string            `json:"plugin_bundle"`
}

// New returns an unpersisted record for a freshly discovered integration.
func New(name string) *Settings {
	return &Settings{
		Name:            strings.TrimSpace(name),
		FeatureSettings: map[string]any{},
		APIKeys:         map[string]string{},
	}
}

// IsPublished reports whether the integration is enabled.
func (s *Settings) IsPublished() bool {
	return s != nil && s.Published
}

// Supports reports whether the record lists f as a supported feature.
func (s *Settings) Supports(f Feature) bool {
	if s == nil {
		return false
	}
	return slices.Contains(s.SupportedFeatures, f)
}

// SupportsAny reports whether the record intersects features.
func (s *Settings) SupportsAny(features ...Feature) bool {
	for _, f := range features {
		if s.Supports(f) {
			return true
		}
	}
	return false
}

// AttachPlugin records the owning plugin. Discovery runs call it every time because the
// owner may change between runs.
func (s *Settings) AttachPlugin(id int64, bundle string) {
	s.PluginID = id
	s.PluginBundle = strings.TrimSpace(bundle)
}

func (s Settings) Normalized() Settings {
	out := s
	out.Name = strings.TrimSpace(out.Name)
	out.PluginBundle = strings.TrimSpace(out.PluginBundle)

	features := make([]Feature, 0, len(out.SupportedFeatures))
	for _, raw := range out.SupportedFeatures {
		f := Feature(normalize.Key(string(raw)))
		if f == "" || slices.Contains(features, f) {
			continue
		}
		features = append(features, f)
	}
	out.SupportedFeatures = features

	if out.FeatureSettings == nil {
		out.FeatureSettings = map[string]any{}
	}
	keys := make(map[string]string, len(out.APIKeys))
	for k, v := range out.APIKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		keys[k] = strings.TrimSpace(v)
	}
	out.APIKeys = keys
	return out
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid integration settings")

func (s Settings) Validate() error {
	s = s.Normalized()
	if s.Name == "" {
		return fmt.Errorf("%w: integration name is required", ErrInvalid)
	}
	for _, f := range s.SupportedFeatures {
		if !slices.Contains(knownFeatures, f) {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalid, f)
		}
	}
	if s.Priority < minPriority || s.Priority > maxPriority {
		return fmt.Errorf("%w: priority must be between %d and %d", ErrInvalid, minPriority, maxPriority)
	}
	return nil
}

// Update is an edit submitted for an existing record. Nil fields are left untouched.
type Update struct {
	Published         *bool             `json:"is_published"`
	SupportedFeatures []Feature         `json:"supported_features"`
	FeatureSettings   map[string]any    `json:"feature_settings"`
	APIKeys           map[string]string `json:"api_keys"`
	Priority          *int              `json:"priority"`
}

// Merge applies update on top of existing. Blank api keys keep the stored secret so forms
// can round-trip masked values.
func Merge(existing Settings, update Update) Settings {
	merged := existing
	if update.Published != nil {
		merged.Published = *update.Published
	}
	if update.SupportedFeatures != nil {
		merged.SupportedFeatures = slices.Clone(update.SupportedFeatures)
	}
	if update.FeatureSettings != nil {
		merged.FeatureSettings = update.FeatureSettings
	}
	if update.Priority != nil {
		merged.Priority = *update.Priority
	}
	if update.APIKeys != nil {
		keys := make(map[string]string, len(existing.APIKeys)+len(update.APIKeys))
		for k, v := range existing.APIKeys {
			keys[k] = v
		}
		for k, v := range update.APIKeys {
			if v = strings.TrimSpace(v); v != "" {
				keys[k] = v
			}
		}
		merged.APIKeys = keys
	}
	return merged.Normalized()
}

// Masked returns a copy safe to hand to API clients.
func (s Settings) Masked() Settings {
	out := s
	out.APIKeys = make(map[string]string, len(s.APIKeys))
	for k, v := range s.APIKeys {
		out.APIKeys[k] = MaskSecret(v)
	}
	return out
}

func MaskSecret(secret string) string {
	s := strings.TrimSpace(secret)
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// EncodeJSON marshals feature settings, api keys and feature lists for storage.
func EncodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeJSON tolerates empty and null columns.
func DecodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
