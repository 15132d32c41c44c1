package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mktstack/integrationhub/internal/config"
	"github.com/mktstack/integrationhub/internal/http/handlers"
	"github.com/mktstack/integrationhub/internal/integrations/catalog"
	"github.com/mktstack/integrationhub/internal/integrations/locator"
	"github.com/mktstack/integrationhub/internal/integrations/profilesync"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/share"
	"github.com/mktstack/integrationhub/internal/integrations/social"
	"github.com/mktstack/integrationhub/internal/logging"
	"github.com/mktstack/integrationhub/internal/store"
	"github.com/mktstack/integrationhub/internal/translation"
	"golang.org/x/text/language"
)

// app holds the wired services shared by every database-backed command.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	pool     *pgxpool.Pool
	store    *store.Store
	locker   *store.LeadLocker
	locator  *locator.Locator
	registry *registry.Registry
	catalog  *catalog.Builder
	profiles *profilesync.Engine
	share    *share.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, pool: pool, store: store.New(pool)}
	if err := a.wire(); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	var err error
	if a.locker, err = store.NewLeadLocker(a.pool); err != nil {
		return err
	}

	a.locator = locator.New(os.DirFS(a.cfg.PluginsDir), a.cfg.PluginBundlePrefix, logging.WithComponent(a.logger, "locator"))

	factory := registry.NewFactory()
	if err := social.Register(factory, a.locator.Namespace(social.Namespace)); err != nil {
		return err
	}
	a.logger.Debug("built-in integrations registered", "names", social.Names(), "constructors", factory.Len())

	a.registry, err = registry.New(registry.Options{
		Locator:  a.locator,
		Plugins:  a.store,
		Settings: a.store,
		Factory:  factory,
		Deps: registry.Deps{
			HTTP:   &http.Client{Timeout: a.cfg.ProfileFetchTimeout},
			Logger: logging.WithComponent(a.logger, "integration"),
		},
		Logger:       logging.WithComponent(a.logger, "registry"),
		Assets:       os.DirFS(a.cfg.AssetsRoot),
		Alphabetical: a.cfg.RegistryAlphabetical,
	})
	if err != nil {
		return err
	}

	translator, err := loadTranslations(a.cfg)
	if err != nil {
		return err
	}
	a.catalog = catalog.NewBuilder(a.registry, translator, logging.WithComponent(a.logger, "catalog"))

	a.profiles, err = profilesync.New(a.registry, a.store, profilesync.Config{
		FetchTimeout: a.cfg.ProfileFetchTimeout,
		Workers:      a.cfg.ProfileFetchWorkers,
		Logger:       logging.WithComponent(a.logger, "profilesync"),
	})
	if err != nil {
		return err
	}

	renderer := share.NewTemplRenderer()
	for id, component := range social.ShareTemplates(social.Namespace) {
		renderer.Register(id, component)
	}
	a.share = share.NewService(a.registry, renderer, logging.WithComponent(a.logger, "share"))
	return nil
}

func loadTranslations(cfg config.Config) (*translation.Catalog, error) {
	tag, err := language.Parse(cfg.TranslationLanguage)
	if err != nil {
		tag = language.English
	}
	if cfg.TranslationsFile == "" {
		return translation.Empty(), nil
	}
	catalog, err := translation.LoadFile(cfg.TranslationsFile, tag)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	return catalog, nil
}

func (a *app) handlers() *handlers.Handlers {
	return &handlers.Handlers{
		Registry: a.registry,
		Catalog:  a.catalog,
		Share:    a.share,
		Profiles: a.profiles,
		Leads:    a.store,
		Locker:   a.locker,
	}
}

func (a *app) Close() {
	if a != nil && a.pool != nil {
		a.pool.Close()
	}
}
