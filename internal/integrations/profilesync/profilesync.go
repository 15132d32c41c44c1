// Package profilesync refreshes the per-lead cache of social profile and activity data.
package profilesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
	"github.com/mktstack/integrationhub/internal/leads"
	"github.com/mktstack/integrationhub/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultWorkers      = 4
)

var socialFeatures = []settings.Feature{settings.FeaturePublicProfile, settings.FeaturePublicActivity}

// Source is the subset of the registry the engine reads.
type Source interface {
	ByFeature(ctx context.Context, features ...settings.Feature) ([]registry.Integration, error)
	Get(ctx context.Context, name string) (registry.Integration, error)
}

// LeadStore persists a lead's social cache.
type LeadStore interface {
	SaveSocialCache(ctx context.Context, leadID int64, cache leads.SocialCache) error
}

type Options struct {
	// Fields replaces the lead's stored field values for identifier resolution, e.g. values
	// submitted with a form that are not saved yet. Nil uses the lead's fields.
	Fields *identifier.FieldSet
	// Integration narrows the run to one integration name.
	Integration string
	// Refresh fetches fresh data. Without it the cache is returned as stored.
	Refresh bool
	// SkipPersist leaves the refreshed cache unsaved.
	SkipPersist bool
	// ReturnSettings adds each matching integration's feature settings to the result.
	ReturnSettings bool
}

// Result is the cache view handed back to callers.
type Result struct {
	Cache           leads.SocialCache         `json:"cache"`
	FeatureSettings map[string]map[string]any `json:"feature_settings,omitempty"`
}

type Config struct {
	FetchTimeout time.Duration
	Workers      int
	Logger       *slog.Logger
	// Now is the clock used for refresh stamps.
	Now func() time.Time
}

type Engine struct {
	source  Source
	store   LeadStore
	timeout time.Duration
	workers int
	logger  *slog.Logger
	now     func() time.Time
}

func New(source Source, store LeadStore, cfg Config) (*Engine, error) {
	if source == nil {
		return nil, errors.New("profile sync source is nil")
	}
	if store == nil {
		return nil, errors.New("profile sync lead store is nil")
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		source:  source,
		store:   store,
		timeout: cfg.FetchTimeout,
		workers: cfg.Workers,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// Profiles returns the lead's social cache, refreshing it first when opts.Refresh is set.
// On refresh lead.SocialCache is replaced with the new mapping.
func (e *Engine) Profiles(ctx context.Context, lead *leads.Lead, opts Options) (Result, error) {
	if lead == nil {
		return Result{}, errors.New("lead is nil")
	}
	opts.Integration = strings.TrimSpace(opts.Integration)

	var featureSettings map[string]map[string]any
	if opts.Refresh || opts.ReturnSettings {
		integrations, err := e.selectIntegrations(ctx, opts.Integration)
		if err != nil {
			return Result{}, err
		}
		if opts.ReturnSettings {
			featureSettings = collectFeatureSettings(integrations)
		}
		if opts.Refresh {
			if opts.Integration != "" && len(integrations) == 0 {
				// The named integration lost its social features.
				lead.SocialCache = lead.SocialCache.Clone()
				delete(lead.SocialCache, opts.Integration)
			}
			if err := e.refresh(ctx, lead, integrations, opts); err != nil {
				return Result{}, err
			}
		}
	}

	cache := lead.SocialCache
	if opts.Integration != "" {
		cache = leads.SocialCache{}
		if entry, ok := lead.SocialCache[opts.Integration]; ok {
			cache[opts.Integration] = entry
		}
	}
	return Result{Cache: cache, FeatureSettings: featureSettings}, nil
}

// ClearCache removes one integration's entry, or every entry when name is empty, and
// persists the result.
func (e *Engine) ClearCache(ctx context.Context, lead *leads.Lead, name string) (leads.SocialCache, error) {
	if lead == nil {
		return nil, errors.New("lead is nil")
	}
	cache := leads.SocialCache{}
	if name = strings.TrimSpace(name); name != "" {
		cache = lead.SocialCache.Clone()
		delete(cache, name)
	}
	if err := e.store.SaveSocialCache(ctx, lead.ID, cache); err != nil {
		return nil, fmt.Errorf("save social cache for lead %d: %w", lead.ID, err)
	}
	lead.SocialCache = cache
	return cache, nil
}

// selectIntegrations returns social integrations, or just the named one. A named
// integration without a social feature yields an empty selection.
func (e *Engine) selectIntegrations(ctx context.Context, name string) ([]registry.Integration, error) {
	if name == "" {
		return e.source.ByFeature(ctx, socialFeatures...)
	}
	integration, err := e.source.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !integration.Settings().SupportsAny(socialFeatures...) {
		return nil, nil
	}
	return []registry.Integration{integration}, nil
}

func collectFeatureSettings(integrations []registry.Integration) map[string]map[string]any {
	out := make(map[string]map[string]any, len(integrations))
	for _, i := range integrations {
		fs := map[string]any{}
		if s := i.Settings(); s != nil {
			maps.Copy(fs, s.FeatureSettings)
		}
		out[i.Name()] = fs
	}
	return out
}

type job struct {
	integration registry.Integration
	id          identifier.Match
	features    []settings.Feature
}

type outcome struct {
	profile  map[string]any
	activity map[string]any
}

func (e *Engine) refresh(ctx context.Context, lead *leads.Lead, integrations []registry.Integration, opts Options) error {
	runID := uuid.NewString()
	logger := e.logger.With("refresh_id", runID, "lead_id", lead.ID)
	fields := lead.FieldSet()
	if opts.Fields != nil {
		fields = *opts.Fields
	}

	cache := lead.SocialCache.Clone()
	var jobs []job
	for _, integration := range integrations {
		name := integration.Name()
		s := integration.Settings()
		match, ok := identifier.Resolve(integration.IdentifierFields(), fields)
		if !ok || !s.IsPublished() {
			if _, cached := cache[name]; cached {
				delete(cache, name)
				metrics.ProfileCachePurgesTotal.WithLabelValues(name).Inc()
				logger.Debug("purged inapplicable social cache entry", "integration", name)
			}
			continue
		}
		jobs = append(jobs, job{integration: integration, id: match, features: s.SupportedFeatures})
	}

	outcomes := make([]outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, j := range jobs {
		g.Go(func() error {
			outcomes[i] = e.fetch(gctx, logger, j)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	stamp := leads.Stamp(e.now())
	for i, j := range jobs {
		name := j.integration.Name()
		o := outcomes[i]
		if len(o.profile) == 0 && len(o.activity) == 0 {
			delete(cache, name)
			continue
		}
		cache[name] = leads.CacheEntry{
			Profile:     nonNil(o.profile),
			Activity:    nonNil(o.activity),
			LastRefresh: stamp,
		}
	}

	if !opts.SkipPersist {
		if err := e.store.SaveSocialCache(ctx, lead.ID, cache); err != nil {
			return fmt.Errorf("save social cache for lead %d: %w", lead.ID, err)
		}
	}
	lead.SocialCache = cache
	logger.Info("social profiles refreshed", "integrations", len(integrations), "fetched", len(jobs))
	return nil
}

// fetch runs the integration's fetchers under the per-integration timeout. Failures are
// logged and read as no data.
func (e *Engine) fetch(ctx context.Context, logger *slog.Logger, j job) outcome {
	name := j.integration.Name()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ProfileFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	var out outcome
	if hasFeature(j.features, settings.FeaturePublicProfile) {
		if fetcher, ok := j.integration.(registry.ProfileFetcher); ok {
			out.profile = e.call(ctx, logger, name, "profile", func(ctx context.Context) (map[string]any, error) {
				return fetcher.FetchUserData(ctx, j.id)
			})
		}
	}
	if hasFeature(j.features, settings.FeaturePublicActivity) {
		if fetcher, ok := j.integration.(registry.ActivityFetcher); ok {
			out.activity = e.call(ctx, logger, name, "activity", func(ctx context.Context) (map[string]any, error) {
				return fetcher.FetchPublicActivity(ctx, j.id)
			})
		}
	}
	return out
}

func (e *Engine) call(ctx context.Context, logger *slog.Logger, name, kind string, fn func(context.Context) (map[string]any, error)) map[string]any {
	data, err := fn(ctx)
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.ProfileFetchesTotal.WithLabelValues(name, kind, status).Inc()
		logger.Warn("social fetch failed", "integration", name, "kind", kind, "error", err)
		return nil
	}
	status := "success"
	if len(data) == 0 {
		status = "empty"
	}
	metrics.ProfileFetchesTotal.WithLabelValues(name, kind, status).Inc()
	return data
}

func hasFeature(features []settings.Feature, f settings.Feature) bool {
	for _, have := range features {
		if have == f {
			return true
		}
	}
	return false
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
