// Package catalog flattens the field metadata of every integration into display labels
// for configuration screens.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/maruel/natural"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/social"
	"github.com/mktstack/integrationhub/internal/metrics"
)

// Source is the subset of the registry the catalog reads.
type Source interface {
	All(ctx context.Context) ([]registry.Integration, error)
	Get(ctx context.Context, name string) (registry.Integration, error)
}

// Translator resolves message keys. Missing keys come back unchanged.
type Translator interface {
	Translate(key string) string
}

type Options struct {
	// SilenceFieldErrors skips integrations whose field provider fails instead of failing
	// the build.
	SilenceFieldErrors bool
}

// Label is one catalog entry.
type Label struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Entry holds one integration's labels in emission order.
type Entry struct {
	Integration string  `json:"integration"`
	Labels      []Label `json:"labels"`
}

// Catalog is the built label set in registry order.
type Catalog struct {
	Entries []Entry `json:"entries"`
}

// Get returns the labels of one integration.
func (c *Catalog) Get(name string) ([]Label, bool) {
	for _, e := range c.Entries {
		if e.Integration == name {
			return e.Labels, true
		}
	}
	return nil, false
}

// Map returns integration -> key -> label.
func (c *Catalog) Map() map[string]map[string]string {
	out := make(map[string]map[string]string, len(c.Entries))
	for _, e := range c.Entries {
		m := make(map[string]string, len(e.Labels))
		for _, l := range e.Labels {
			m[l.Key] = l.Label
		}
		out[e.Integration] = m
	}
	return out
}

// Builder builds the catalog once per option set and serves it until Invalidate.
type Builder struct {
	source     Source
	translator Translator
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[Options]*Catalog
}

func NewBuilder(source Source, translator Translator, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		source:     source,
		translator: translator,
		logger:     logger,
		cache:      map[Options]*Catalog{},
	}
}

// Invalidate drops every memoized catalog.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	b.cache = map[Options]*Catalog{}
	b.mu.Unlock()
	metrics.CacheInvalidationsTotal.WithLabelValues("field_catalog").Inc()
}

// Build returns the memoized catalog for opts, building it on first use.
func (b *Builder) Build(ctx context.Context, opts Options) (*Catalog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.cache[opts]; ok {
		return c, nil
	}

	integrations, err := b.source.All(ctx)
	if err != nil {
		metrics.FieldCatalogBuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	c := &Catalog{}
	for _, integration := range integrations {
		labels, err := b.labels(ctx, integration, opts)
		if err != nil {
			metrics.FieldCatalogBuildsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if len(labels) == 0 {
			continue
		}
		c.Entries = append(c.Entries, Entry{Integration: integration.Name(), Labels: labels})
		metrics.FieldCatalogFields.WithLabelValues(integration.Name()).Set(float64(len(labels)))
	}

	b.cache[opts] = c
	metrics.FieldCatalogBuildsTotal.WithLabelValues("success").Inc()
	return c, nil
}

// ForIntegration returns one integration's labels. Unknown names fail with the registry's
// unsupported lookup error.
func (b *Builder) ForIntegration(ctx context.Context, name string, opts Options) ([]Label, error) {
	integration, err := b.source.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := b.Build(ctx, opts)
	if err != nil {
		return nil, err
	}
	labels, _ := c.Get(integration.Name())
	if labels == nil {
		labels = []Label{}
	}
	return labels, nil
}

func (b *Builder) labels(ctx context.Context, integration registry.Integration, opts Options) ([]Label, error) {
	provider, ok := integration.(registry.FieldProvider)
	if !ok {
		return nil, nil
	}
	name := integration.Name()
	fields, err := provider.AvailableFields(ctx, opts.SilenceFieldErrors)
	if err != nil {
		if opts.SilenceFieldErrors {
			b.logger.Warn("field metadata unavailable", "integration", name, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("field metadata for %s: %w", name, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	set := newLabelSet()
	for _, field := range fields {
		b.flatten(set, integration, field)
	}

	labels := set.labels
	if sorter, ok := integration.(registry.FieldSorter); ok && sorter.SortFieldsAlphabetically() {
		slices.SortStableFunc(labels, func(x, y Label) int {
			switch {
			case natural.Less(x.Key, y.Key):
				return -1
			case natural.Less(y.Key, x.Key):
				return 1
			default:
				return 0
			}
		})
	}
	return labels, nil
}

func (b *Builder) flatten(set *labelSet, integration registry.Integration, field registry.FieldDescriptor) {
	if strings.TrimSpace(field.Name) == "" {
		return
	}
	label := func(key string) string {
		if field.Label != "" {
			return field.Label
		}
		return b.translate(integration.Name(), key)
	}
	perSubField := func() {
		for _, sub := range field.SubFields {
			key := integration.MatchFieldName(field.Name, sub)
			set.put(key, label(key))
		}
	}

	switch field.Kind {
	case registry.FieldComposite:
		if len(field.SubFields) == 0 {
			key := integration.MatchFieldName(field.Name, "")
			set.put(field.Name, label(key))
			return
		}
		perSubField()
	case registry.FieldURLCollection:
		if field.Name == "urls" || field.Name == "url" {
			for _, service := range social.Services() {
				key := service + "ProfileHandle"
				set.put(key, label(key))
			}
			for _, sub := range field.SubFields {
				key := sub + "Urls"
				set.put(key, label(key))
			}
			return
		}
		if len(field.SubFields) > 0 {
			perSubField()
			return
		}
		key := integration.MatchFieldName(field.Name, "")
		set.put(key, label(key))
	default:
		key := integration.MatchFieldName(field.Name, "")
		set.put(key, label(key))
	}
}

func (b *Builder) translate(integration, field string) string {
	key := "integration." + strings.ToLower(integration) + "." + field
	if b.translator == nil {
		return key
	}
	return b.translator.Translate(key)
}

// labelSet keeps first-insertion order; a repeated key replaces the label in place.
type labelSet struct {
	labels []Label
	index  map[string]int
}

func newLabelSet() *labelSet {
	return &labelSet{index: map[string]int{}}
}

func (s *labelSet) put(key, label string) {
	if i, ok := s.index[key]; ok {
		s.labels[i].Label = label
		return
	}
	s.index[key] = len(s.labels)
	s.labels = append(s.labels, Label{Key: key, Label: label})
}
