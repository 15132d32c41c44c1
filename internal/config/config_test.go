package config

import (
	"testing"
	"time"
)

func TestLoadWithOptions_Defaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "HTTP_ADDR", "METRICS_ADDR", "PLUGINS_DIR", "PLUGIN_BUNDLE_PREFIX",
		"ASSETS_ROOT", "TRANSLATIONS_FILE", "PROFILE_FETCH_TIMEOUT", "PROFILE_FETCH_WORKERS",
		"REGISTRY_ALPHABETICAL", "TRANSLATION_LANGUAGE", "REGISTRY_REFRESH_INTERVAL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
	if err != nil {
		t.Fatalf("LoadWithOptions() error = %v", err)
	}
	if cfg.HTTPAddr != defaultHTTPAddr || cfg.MetricsAddr != defaultMetricsAddr {
		t.Fatalf("addrs = %q %q", cfg.HTTPAddr, cfg.MetricsAddr)
	}
	if cfg.PluginsDir != "plugins" || cfg.AssetsRoot != "." {
		t.Fatalf("dirs = %q %q", cfg.PluginsDir, cfg.AssetsRoot)
	}
	if cfg.ProfileFetchTimeout != 10*time.Second || cfg.ProfileFetchWorkers != 4 {
		t.Fatalf("fetch = %s/%d", cfg.ProfileFetchTimeout, cfg.ProfileFetchWorkers)
	}
	if cfg.RegistryAlphabetical || cfg.RegistryRefreshInterval != 0 {
		t.Fatalf("registry defaults = %v/%s", cfg.RegistryAlphabetical, cfg.RegistryRefreshInterval)
	}
}

func TestLoadWithOptions_ParsesOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROFILE_FETCH_TIMEOUT", "3s")
	t.Setenv("PROFILE_FETCH_WORKERS", "9")
	t.Setenv("REGISTRY_ALPHABETICAL", "1")
	t.Setenv("PLUGIN_BUNDLE_PREFIX", " Addon ")
	t.Setenv("REGISTRY_REFRESH_INTERVAL", "5m")

	cfg, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
	if err != nil {
		t.Fatalf("LoadWithOptions() error = %v", err)
	}
	if cfg.ProfileFetchTimeout != 3*time.Second || cfg.ProfileFetchWorkers != 9 {
		t.Fatalf("fetch = %s/%d", cfg.ProfileFetchTimeout, cfg.ProfileFetchWorkers)
	}
	if !cfg.RegistryAlphabetical || cfg.PluginBundlePrefix != "Addon" || cfg.RegistryRefreshInterval != 5*time.Minute {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadWithOptions_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROFILE_FETCH_TIMEOUT", "soon")
	t.Setenv("PROFILE_FETCH_WORKERS", "0")
	t.Setenv("REGISTRY_ALPHABETICAL", "yes")

	cfg, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
	if err != nil {
		t.Fatalf("LoadWithOptions() error = %v", err)
	}
	if cfg.ProfileFetchTimeout != defaultProfileFetchTimeout || cfg.ProfileFetchWorkers != defaultProfileFetchWorkers {
		t.Fatalf("invalid values should fall back: %s/%d", cfg.ProfileFetchTimeout, cfg.ProfileFetchWorkers)
	}
	if cfg.RegistryAlphabetical {
		t.Fatalf("REGISTRY_ALPHABETICAL=yes should keep the default")
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want DATABASE_URL error")
	}
}
