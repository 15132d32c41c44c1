package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/locator"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
)

type fakeIntegration struct {
	Base
	name string
}

func (f *fakeIntegration) Name() string { return f.name }

func (f *fakeIntegration) IdentifierFields() identifier.Spec { return identifier.Single("email") }

type fakeDiscoverer struct {
	descriptors []locator.Descriptor
	calls       atomic.Int32
}

func (d *fakeDiscoverer) Discover(context.Context, []locator.Plugin, locator.Options) ([]locator.Descriptor, error) {
	d.calls.Add(1)
	return d.descriptors, nil
}

type fakePlugins struct{ err error }

func (p fakePlugins) ListPlugins(context.Context) ([]locator.Plugin, error) {
	return []locator.Plugin{{ID: 1, Bundle: "SocialBundle", Enabled: true}}, p.err
}

type fakeStore struct {
	mu    sync.Mutex
	rows  []settings.Settings
	saved []settings.Settings
}

func (s *fakeStore) ListSettings(context.Context) ([]settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]settings.Settings(nil), s.rows...), nil
}

func (s *fakeStore) SaveSettings(_ context.Context, in *settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == 0 {
		in.ID = int64(len(s.saved) + 1)
	}
	s.saved = append(s.saved, *in)
	return nil
}

func descriptor(name string, pluginID int64) locator.Descriptor {
	return locator.Descriptor{Name: name, Namespace: "SocialBundle", PluginID: pluginID, PluginBundle: "SocialBundle"}
}

func newTestRegistry(t *testing.T, descriptors []locator.Descriptor, rows []settings.Settings, skip ...string) (*Registry, *fakeDiscoverer, *fakeStore) {
	t.Helper()

	factory := NewFactory()
	for _, d := range descriptors {
		if slices.Contains(skip, d.Name) {
			continue
		}
		name := d.Name
		ref := ClassRef{Namespace: d.Namespace, Name: d.Name}
		if err := factory.Register(ref, func(Deps) (Integration, error) {
			return &fakeIntegration{name: name}, nil
		}); err != nil {
			t.Fatalf("Register(%s) error = %v", ref, err)
		}
	}

	disc := &fakeDiscoverer{descriptors: descriptors}
	store := &fakeStore{rows: rows}
	reg, err := New(Options{
		Locator:  disc,
		Plugins:  fakePlugins{},
		Settings: store,
		Factory:  factory,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return reg, disc, store
}

func names(list []Integration) []string {
	out := make([]string, 0, len(list))
	for _, i := range list {
		out = append(out, i.Name())
	}
	return out
}

func equalStrings(a, b []string) bool {
	return slices.Equal(a, b)
}

func TestAllOrdersByPriorityStable(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t,
		[]locator.Descriptor{descriptor("A", 1), descriptor("B", 1), descriptor("C", 1)},
		[]settings.Settings{
			{Name: "A", Priority: 5},
			{Name: "B", Priority: 5},
			{Name: "C", Priority: 1},
		},
	)

	got, err := reg.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if want := []string{"C", "A", "B"}; !equalStrings(names(got), want) {
		t.Fatalf("All() = %v, want %v", names(got), want)
	}

	alpha, err := reg.List(context.Background(), Filter{Alphabetical: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"A", "B", "C"}; !equalStrings(names(alpha), want) {
		t.Fatalf("List(alphabetical) = %v, want %v", names(alpha), want)
	}
}

func TestAllIsBuiltOnce(t *testing.T) {
	t.Parallel()

	reg, disc, _ := newTestRegistry(t, []locator.Descriptor{descriptor("Twitter", 1)}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.All(ctx); err != nil {
				t.Errorf("All() error = %v", err)
			}
		}()
	}
	wg.Wait()

	first, _ := reg.Get(ctx, "Twitter")
	second, _ := reg.Get(ctx, "Twitter")
	if first != second {
		t.Fatalf("Get() returned different instances across calls")
	}
	if calls := disc.calls.Load(); calls != 1 {
		t.Fatalf("discover calls = %d, want 1", calls)
	}
	if first.Settings() == nil || first.Settings().Name != "Twitter" {
		t.Fatalf("settings not attached: %+v", first.Settings())
	}
}

func TestInvalidateRebuilds(t *testing.T) {
	t.Parallel()

	reg, disc, _ := newTestRegistry(t, []locator.Descriptor{descriptor("Twitter", 1)}, nil)
	ctx := context.Background()

	first, err := reg.Get(ctx, "Twitter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	reg.Invalidate()
	if !reg.BuiltAt().IsZero() {
		t.Fatalf("BuiltAt() after Invalidate should be zero")
	}
	second, err := reg.Get(ctx, "Twitter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first == second {
		t.Fatalf("expected a fresh instance after Invalidate")
	}
	if calls := disc.calls.Load(); calls != 2 {
		t.Fatalf("discover calls = %d, want 2", calls)
	}
}

func TestGetUnknownNameListsAvailable(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t,
		[]locator.Descriptor{descriptor("Twitter", 1), descriptor("Social", 1)},
		nil,
		"Social",
	)

	_, err := reg.Get(context.Background(), "Myspace")
	if !errors.Is(err, ErrUnsupportedLookup) {
		t.Fatalf("Get() error = %v, want ErrUnsupportedLookup", err)
	}
	var lookupErr *UnsupportedLookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("Get() error type = %T", err)
	}
	if want := []string{"Twitter", "Social"}; !equalStrings(lookupErr.Available, want) {
		t.Fatalf("Available = %v, want %v", lookupErr.Available, want)
	}
}

func TestGetManyDropsUnknown(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t, []locator.Descriptor{descriptor("Twitter", 1), descriptor("Facebook", 1)}, nil)
	ctx := context.Background()

	got, err := reg.GetMany(ctx, []string{"Facebook", "Myspace", "Twitter"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if want := []string{"Facebook", "Twitter"}; !equalStrings(names(got), want) {
		t.Fatalf("GetMany() = %v, want %v", names(got), want)
	}

	got, err = reg.GetMany(ctx, []string{"Myspace"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("GetMany(unknown) = %v, want empty", names(got))
	}
}

func TestNonInstantiableIsSkipped(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t,
		[]locator.Descriptor{descriptor("Social", 1), descriptor("Twitter", 1)},
		nil,
		"Social",
	)
	got, err := reg.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if want := []string{"Twitter"}; !equalStrings(names(got), want) {
		t.Fatalf("All() = %v, want %v", names(got), want)
	}
}

func TestByFeatureIgnoresPublishedFlag(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t,
		[]locator.Descriptor{descriptor("Twitter", 1), descriptor("Facebook", 1), descriptor("Sales", 2)},
		[]settings.Settings{
			{Name: "Twitter", Published: true, SupportedFeatures: []settings.Feature{settings.FeatureShareButton}},
			{Name: "Facebook", Published: false, SupportedFeatures: []settings.Feature{settings.FeaturePublicProfile}},
			{Name: "Sales"},
		},
	)
	ctx := context.Background()

	got, err := reg.ByFeature(ctx, settings.FeaturePublicProfile, settings.FeatureShareButton)
	if err != nil {
		t.Fatalf("ByFeature() error = %v", err)
	}
	if want := []string{"Twitter", "Facebook"}; !equalStrings(names(got), want) {
		t.Fatalf("ByFeature() = %v, want %v", names(got), want)
	}

	byPlugin, err := reg.ByPlugin(ctx, 2)
	if err != nil {
		t.Fatalf("ByPlugin() error = %v", err)
	}
	if want := []string{"Sales"}; !equalStrings(names(byPlugin), want) {
		t.Fatalf("ByPlugin() = %v, want %v", names(byPlugin), want)
	}
}

func TestUpdateSettingsReorders(t *testing.T) {
	t.Parallel()

	reg, _, store := newTestRegistry(t,
		[]locator.Descriptor{descriptor("A", 1), descriptor("B", 1)},
		[]settings.Settings{
			{Name: "A", Priority: 1, APIKeys: map[string]string{"key": "secret-1234"}},
			{Name: "B", Priority: 2},
		},
	)
	ctx := context.Background()

	priority := 10
	published := true
	updated, err := reg.UpdateSettings(ctx, "A", settings.Update{
		Published: &published,
		Priority:  &priority,
		APIKeys:   map[string]string{"key": ""},
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if updated.APIKeys["key"] != "secret-1234" {
		t.Fatalf("blank api key should keep the stored secret, got %q", updated.APIKeys["key"])
	}
	if len(store.saved) != 1 || !store.saved[0].Published {
		t.Fatalf("saved = %+v", store.saved)
	}

	got, err := reg.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if want := []string{"B", "A"}; !equalStrings(names(got), want) {
		t.Fatalf("All() after update = %v, want %v", names(got), want)
	}

	bad := 5000
	if _, err := reg.UpdateSettings(ctx, "A", settings.Update{Priority: &bad}); err == nil {
		t.Fatalf("UpdateSettings() with out-of-range priority should fail")
	}
}

func TestUpdateSettingsTiesKeepDiscoveryOrder(t *testing.T) {
	t.Parallel()

	reg, _, store := newTestRegistry(t,
		[]locator.Descriptor{descriptor("A", 1), descriptor("B", 1), descriptor("C", 1)},
		[]settings.Settings{
			{Name: "A", Priority: 5},
			{Name: "B", Priority: 5},
			{Name: "C", Priority: 1},
		},
	)
	ctx := context.Background()

	priority := 1
	if _, err := reg.UpdateSettings(ctx, "B", settings.Update{Priority: &priority}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	got, err := reg.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	want := []string{"B", "C", "A"}
	if !equalStrings(names(got), want) {
		t.Fatalf("All() after update = %v, want %v", names(got), want)
	}

	store.mu.Lock()
	store.rows = []settings.Settings{{Name: "A", Priority: 5}, store.saved[0], {Name: "C", Priority: 1}}
	store.mu.Unlock()
	reg.Invalidate()

	rebuilt, err := reg.All(ctx)
	if err != nil {
		t.Fatalf("All() after rebuild error = %v", err)
	}
	if !equalStrings(names(rebuilt), want) {
		t.Fatalf("All() after rebuild = %v, want %v", names(rebuilt), want)
	}
}

type gatedDiscoverer struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (d *gatedDiscoverer) Discover(ctx context.Context, _ []locator.Plugin, _ locator.Options) ([]locator.Descriptor, error) {
	d.once.Do(func() { close(d.started) })
	select {
	case <-d.release:
		return []locator.Descriptor{descriptor("A", 1)}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestBuildSurvivesCanceledCaller(t *testing.T) {
	t.Parallel()

	factory := NewFactory()
	if err := factory.Register(ClassRef{Namespace: "SocialBundle", Name: "A"}, func(Deps) (Integration, error) {
		return &fakeIntegration{name: "A"}, nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	disc := &gatedDiscoverer{release: make(chan struct{}), started: make(chan struct{})}
	reg, err := New(Options{
		Locator:  disc,
		Plugins:  fakePlugins{},
		Settings: &fakeStore{},
		Factory:  factory,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reg.All(first)
		firstErr <- err
	}()
	<-disc.started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("All(canceled) error = %v, want context.Canceled", err)
	}

	close(disc.release)
	got, err := reg.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if want := []string{"A"}; !equalStrings(names(got), want) {
		t.Fatalf("All() = %v, want %v", names(got), want)
	}
}

func TestBuildPropagatesPluginErrors(t *testing.T) {
	t.Parallel()

	reg, err := New(Options{
		Locator:  &fakeDiscoverer{},
		Plugins:  fakePlugins{err: errors.New("db down")},
		Settings: &fakeStore{},
		Factory:  NewFactory(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := reg.All(context.Background()); err == nil {
		t.Fatalf("All() error = nil, want plugin source error")
	}
}

func TestIconPath(t *testing.T) {
	t.Parallel()

	reg, _, _ := newTestRegistry(t, []locator.Descriptor{descriptor("Twitter", 1), descriptor("Facebook", 1)}, nil)
	reg.opts.Assets = fstest.MapFS{
		"plugins/SocialBundle/Assets/img/twitter.png": {Data: []byte("png")},
	}
	ctx := context.Background()

	if got, _ := reg.IconPath(ctx, "Twitter"); got != "plugins/SocialBundle/Assets/img/twitter.png" {
		t.Fatalf("IconPath(Twitter) = %q", got)
	}
	if got, _ := reg.IconPath(ctx, "Facebook"); got != GenericIconPath {
		t.Fatalf("IconPath(Facebook) = %q, want %q", got, GenericIconPath)
	}
	if _, err := reg.IconPath(ctx, "Myspace"); err == nil {
		t.Fatalf("IconPath(unknown) error = nil")
	}
}

func TestFactoryRegister(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	ctor := func(Deps) (Integration, error) { return &fakeIntegration{name: "X"}, nil }
	ref := ClassRef{Namespace: "SocialBundle", Name: "X"}

	if err := f.Register(ref, ctor); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := f.Register(ref, ctor); err == nil {
		t.Fatalf("duplicate Register() should fail")
	}
	if err := f.Register(ClassRef{Name: "Y"}, ctor); err == nil {
		t.Fatalf("Register() without namespace should fail")
	}
	if _, err := f.Construct(ClassRef{Namespace: "SocialBundle", Name: "Z"}, Deps{}); !errors.Is(err, ErrNotInstantiable) {
		t.Fatalf("Construct(unknown) error = %v, want ErrNotInstantiable", err)
	}
}

func TestMatchFieldName(t *testing.T) {
	t.Parallel()

	var b Base
	if got := b.MatchFieldName("name", "givenName"); got != "nameGivenName" {
		t.Fatalf("MatchFieldName() = %q", got)
	}
	if got := b.MatchFieldName("email", ""); got != "email" {
		t.Fatalf("MatchFieldName() = %q", got)
	}
}
