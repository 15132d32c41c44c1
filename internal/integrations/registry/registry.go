package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mktstack/integrationhub/internal/integrations/locator"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
	"github.com/mktstack/integrationhub/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Discoverer turns plugin statuses into integration descriptors.
type Discoverer interface {
	Discover(ctx context.Context, plugins []locator.Plugin, opts locator.Options) ([]locator.Descriptor, error)
}

// SettingsStore persists integration settings records.
type SettingsStore interface {
	ListSettings(ctx context.Context) ([]settings.Settings, error)
	SaveSettings(ctx context.Context, s *settings.Settings) error
}

type Options struct {
	Locator  Discoverer
	Plugins  locator.PluginSource
	Settings SettingsStore
	Factory  *Factory
	Deps     Deps
	Logger   *slog.Logger
	// Assets is the filesystem icon paths are resolved against.
	Assets fs.FS
	// Alphabetical orders listings by name instead of priority.
	Alphabetical bool
	// BuildTimeout bounds one shared build. The build outlives the caller that started it.
	BuildTimeout time.Duration
}

const defaultBuildTimeout = 30 * time.Second

// Registry instantiates every discovered integration once and serves lookups from that
// snapshot until Invalidate is called.
type Registry struct {
	opts Options

	mu         sync.RWMutex
	snap       *snapshot
	generation uint64
	group      singleflight.Group
}

type entry struct {
	integration Integration
	descriptor  locator.Descriptor
}

type snapshot struct {
	descriptors []locator.Descriptor
	entries     map[string]entry
	// order is discovery order; priority ties fall back to it.
	order        []string
	byPriority   []string
	alphabetical []string
	builtAt      time.Time
}

func New(opts Options) (*Registry, error) {
	if opts.Locator == nil {
		return nil, errors.New("registry locator is nil")
	}
	if opts.Plugins == nil {
		return nil, errors.New("registry plugin source is nil")
	}
	if opts.Settings == nil {
		return nil, errors.New("registry settings store is nil")
	}
	if opts.Factory == nil {
		return nil, errors.New("registry factory is nil")
	}
	if opts.Deps.Logger == nil {
		opts.Deps.Logger = opts.Logger
	}
	metrics.RegistryConstructors.Set(float64(opts.Factory.Len()))
	return &Registry{opts: opts}, nil
}

// Build constructs the snapshot if it does not exist yet. Concurrent callers share one build.
func (r *Registry) Build(ctx context.Context) error {
	_, err := r.current(ctx)
	return err
}

// Invalidate drops the snapshot; the next lookup rebuilds it.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.snap = nil
	r.generation++
	r.mu.Unlock()
	metrics.CacheInvalidationsTotal.WithLabelValues("registry").Inc()
}

// BuiltAt reports when the current snapshot was built, or the zero time.
func (r *Registry) BuiltAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return time.Time{}
	}
	return r.snap.builtAt
}

func (r *Registry) current(ctx context.Context) (*snapshot, error) {
	r.mu.RLock()
	snap, gen := r.snap, r.generation
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	ch := r.group.DoChan(fmt.Sprintf("build-%d", gen), func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.buildTimeout())
		defer cancel()
		start := time.Now()
		built, err := r.build(buildCtx)
		metrics.RegistryBuildDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RegistryBuildsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.RegistryBuildsTotal.WithLabelValues("success").Inc()
		metrics.RegistryIntegrations.Set(float64(len(built.entries)))

		r.mu.Lock()
		if r.generation == gen {
			r.snap = built
		}
		r.mu.Unlock()
		return built, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	}
}

func (r *Registry) buildTimeout() time.Duration {
	if r.opts.BuildTimeout > 0 {
		return r.opts.BuildTimeout
	}
	return defaultBuildTimeout
}

func (r *Registry) build(ctx context.Context) (*snapshot, error) {
	logger := r.logger()

	plugins, err := r.opts.Plugins.ListPlugins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	descriptors, err := r.opts.Locator.Discover(ctx, plugins, locator.Options{Alphabetical: r.opts.Alphabetical})
	if err != nil {
		return nil, fmt.Errorf("discover integrations: %w", err)
	}
	stored, err := r.opts.Settings.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list integration settings: %w", err)
	}
	byName := make(map[string]*settings.Settings, len(stored))
	for i := range stored {
		s := stored[i].Normalized()
		byName[s.Name] = &s
	}

	snap := &snapshot{
		descriptors: descriptors,
		entries:     make(map[string]entry, len(descriptors)),
		builtAt:     time.Now().UTC(),
	}
	order := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if _, seen := snap.entries[d.Name]; seen {
			continue
		}
		ref := ClassRef{Namespace: d.Namespace, Name: d.Name}
		integration, err := r.opts.Factory.Construct(ref, r.opts.Deps)
		if err != nil {
			if errors.Is(err, ErrNotInstantiable) {
				logger.Debug("skipping non-instantiable integration", "integration", ref.String())
				metrics.IntegrationsSkippedTotal.WithLabelValues("not_instantiable").Inc()
			} else {
				logger.Warn("integration constructor failed", "integration", ref.String(), "error", err)
				metrics.IntegrationsSkippedTotal.WithLabelValues("constructor_error").Inc()
			}
			continue
		}

		s, ok := byName[d.Name]
		if !ok {
			s = settings.New(d.Name)
		}
		s.AttachPlugin(d.PluginID, d.PluginBundle)
		integration.AttachSettings(s)

		snap.entries[d.Name] = entry{integration: integration, descriptor: d}
		order = append(order, d.Name)
	}

	snap.order = order
	snap.byPriority = priorityOrder(order, snap.entries)
	snap.alphabetical = slices.Clone(order)
	slices.Sort(snap.alphabetical)

	logger.Info("integration registry built",
		"descriptors", len(descriptors),
		"integrations", len(snap.entries),
	)
	return snap, nil
}

// priorityOrder is a stable sort so equal priorities keep discovery order.
func priorityOrder(order []string, entries map[string]entry) []string {
	out := slices.Clone(order)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(Priority(entries[a].integration), Priority(entries[b].integration))
	})
	return out
}

// Filter narrows a listing. Empty fields do not filter.
type Filter struct {
	Names        []string
	Features     []settings.Feature
	PluginID     int64
	Alphabetical bool
}

// List returns the integrations matching f in priority order, or by name when either the
// filter or the registry asks for it.
func (r *Registry) List(ctx context.Context, f Filter) ([]Integration, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}

	order := snap.byPriority
	if f.Alphabetical || r.opts.Alphabetical {
		order = snap.alphabetical
	}
	out := make([]Integration, 0, len(order))
	for _, name := range order {
		e := snap.entries[name]
		if len(f.Names) > 0 && !slices.Contains(f.Names, name) {
			continue
		}
		if f.PluginID != 0 && e.descriptor.PluginID != f.PluginID {
			continue
		}
		if len(f.Features) > 0 && !e.integration.Settings().SupportsAny(f.Features...) {
			continue
		}
		out = append(out, e.integration)
	}
	return out, nil
}

// All returns every integration in priority order.
func (r *Registry) All(ctx context.Context) ([]Integration, error) {
	return r.List(ctx, Filter{})
}

// Get returns one integration. Unknown names fail with *UnsupportedLookupError.
func (r *Registry) Get(ctx context.Context, name string) (Integration, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	if e, ok := snap.entries[normalizeName(name)]; ok {
		return e.integration, nil
	}
	return nil, snap.unsupported(name)
}

// GetMany returns the named integrations in request order, dropping unknown names.
func (r *Registry) GetMany(ctx context.Context, names []string) ([]Integration, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Integration, 0, len(names))
	for _, name := range names {
		if e, ok := snap.entries[normalizeName(name)]; ok {
			out = append(out, e.integration)
		}
	}
	return out, nil
}

// ByFeature returns integrations whose settings list any of features, published or not.
func (r *Registry) ByFeature(ctx context.Context, features ...settings.Feature) ([]Integration, error) {
	if len(features) == 0 {
		return nil, nil
	}
	return r.List(ctx, Filter{Features: features})
}

// ByPlugin returns the integrations contributed by one plugin.
func (r *Registry) ByPlugin(ctx context.Context, pluginID int64) ([]Integration, error) {
	if pluginID == 0 {
		return nil, errors.New("plugin id is required")
	}
	return r.List(ctx, Filter{PluginID: pluginID})
}

// Descriptor returns the discovery record of an instantiated integration.
func (r *Registry) Descriptor(ctx context.Context, name string) (locator.Descriptor, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return locator.Descriptor{}, err
	}
	if e, ok := snap.entries[normalizeName(name)]; ok {
		return e.descriptor, nil
	}
	return locator.Descriptor{}, snap.unsupported(name)
}

// UpdateSettings merges an edit into the named integration's settings, persists it and
// swaps the shared record.
func (r *Registry) UpdateSettings(ctx context.Context, name string, update settings.Update) (*settings.Settings, error) {
	integration, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	current := integration.Settings()
	if current == nil {
		current = settings.New(integration.Name())
	}

	merged := settings.Merge(*current, update)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := r.opts.Settings.SaveSettings(ctx, &merged); err != nil {
		return nil, fmt.Errorf("save settings for %s: %w", merged.Name, err)
	}

	r.mu.Lock()
	integration.AttachSettings(&merged)
	if r.snap != nil {
		next := *r.snap
		next.byPriority = priorityOrder(next.order, next.entries)
		r.snap = &next
	}
	r.mu.Unlock()
	return &merged, nil
}

func (s *snapshot) unsupported(name string) error {
	available := make([]string, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		if !slices.Contains(available, d.Name) {
			available = append(available, d.Name)
		}
	}
	return &UnsupportedLookupError{Name: name, Available: available}
}

func (r *Registry) logger() *slog.Logger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return slog.Default()
}
