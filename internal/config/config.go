package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultMetricsAddr         = ":9090"
	defaultPluginsDir          = "plugins"
	defaultAssetsRoot          = "."
	defaultProfileFetchTimeout = 10 * time.Second
	defaultProfileFetchWorkers = 4
	defaultTranslationLanguage = "en"
)

type Config struct {
	DatabaseURL         string
	HTTPAddr            string
	MetricsAddr         string
	PluginsDir          string
	PluginBundlePrefix  string
	AssetsRoot          string
	TranslationsFile    string
	TranslationLanguage string
	ProfileFetchTimeout time.Duration
	ProfileFetchWorkers int
	// RegistryAlphabetical orders integrations by name instead of priority.
	RegistryAlphabetical bool
	// RegistryRefreshInterval re-runs plugin discovery while serving. Zero disables it.
	RegistryRefreshInterval time.Duration
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		HTTPAddr:             getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:          getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		PluginsDir:           getenvDefault("PLUGINS_DIR", defaultPluginsDir),
		PluginBundlePrefix:   strings.TrimSpace(os.Getenv("PLUGIN_BUNDLE_PREFIX")),
		AssetsRoot:           getenvDefault("ASSETS_ROOT", defaultAssetsRoot),
		TranslationsFile:     strings.TrimSpace(os.Getenv("TRANSLATIONS_FILE")),
		TranslationLanguage:  strings.ToLower(strings.TrimSpace(getenvDefault("TRANSLATION_LANGUAGE", defaultTranslationLanguage))),
		ProfileFetchTimeout:  defaultProfileFetchTimeout,
		ProfileFetchWorkers:  getenvIntDefault("PROFILE_FETCH_WORKERS", defaultProfileFetchWorkers),
		RegistryAlphabetical: getenvBoolDefault("REGISTRY_ALPHABETICAL", false),
	}

	if v := os.Getenv("PROFILE_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ProfileFetchTimeout = d
		}
	}

	if v := os.Getenv("REGISTRY_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RegistryRefreshInterval = d
		}
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
