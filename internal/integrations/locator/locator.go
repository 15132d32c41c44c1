package locator

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
)

const (
	// IntegrationDir is the directory inside a plugin bundle holding integration manifests.
	IntegrationDir = "Integration"
	// FileSuffix marks an integration manifest, e.g. TwitterIntegration.yaml.
	FileSuffix = "Integration.yaml"
)

// Plugin is an installed add-on bundle as reported by plugin management.
type Plugin struct {
	ID      int64
	Bundle  string
	Enabled bool
	// Directory is the bundle path inside the locator filesystem. Defaults to Bundle.
	Directory string
}

// PluginSource lists installed plugins and their status.
type PluginSource interface {
	ListPlugins(ctx context.Context) ([]Plugin, error)
}

// Descriptor names a discovered integration without instantiating it.
type Descriptor struct {
	Name         string `json:"name"`
	Namespace    string `json:"namespace"`
	PluginID     int64  `json:"plugin_id"`
	PluginBundle string `json:"plugin_bundle"`
}

type Options struct {
	// Alphabetical sorts each plugin's manifests by name. Otherwise directory order is kept
	// and ordering is resolved later by priority.
	Alphabetical bool
}

// Locator scans plugin bundles rooted in FS.
type Locator struct {
	FS           fs.FS
	BundlePrefix string
	Logger       *slog.Logger
}

func New(fsys fs.FS, bundlePrefix string, logger *slog.Logger) *Locator {
	return &Locator{FS: fsys, BundlePrefix: strings.TrimSpace(bundlePrefix), Logger: logger}
}

// Discover returns a descriptor for every integration manifest of every enabled plugin.
func (l *Locator) Discover(ctx context.Context, plugins []Plugin, opts Options) ([]Descriptor, error) {
	if l.FS == nil {
		return nil, errors.New("locator filesystem is nil")
	}
	logger := l.logger()

	var out []Descriptor
	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !p.Enabled {
			logger.Debug("skipping disabled plugin", "bundle", p.Bundle)
			continue
		}
		bundle := strings.TrimSpace(p.Bundle)
		if bundle == "" {
			continue
		}
		dir := strings.Trim(strings.TrimSpace(p.Directory), "/")
		if dir == "" {
			dir = bundle
		}

		names, err := l.manifestNames(path.Join(dir, IntegrationDir), opts.Alphabetical)
		if err != nil {
			logger.Warn("plugin integration directory unreadable", "bundle", bundle, "error", err)
			continue
		}
		namespace := l.Namespace(bundle)
		for _, name := range names {
			out = append(out, Descriptor{
				Name:         name,
				Namespace:    namespace,
				PluginID:     p.ID,
				PluginBundle: bundle,
			})
		}
	}
	return out, nil
}

func (l *Locator) manifestNames(dir string, alphabetical bool) ([]string, error) {
	entries, err := readDirUnsorted(l.FS, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file := entry.Name()
		if len(file) <= len(FileSuffix) || !strings.HasSuffix(file, FileSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(file, FileSuffix))
	}
	if alphabetical {
		sort.Strings(names)
	}
	return names, nil
}

// readDirUnsorted keeps the order the filesystem reports when it can; fs.ReadDir always sorts.
func readDirUnsorted(fsys fs.FS, dir string) ([]fs.DirEntry, error) {
	f, err := fsys.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if rdf, ok := f.(fs.ReadDirFile); ok {
		return rdf.ReadDir(-1)
	}
	return fs.ReadDir(fsys, dir)
}

// Namespace is the class namespace for bundle: the bundle name minus BundlePrefix.
func (l *Locator) Namespace(bundle string) string {
	if l.BundlePrefix == "" {
		return bundle
	}
	if ns := strings.TrimPrefix(bundle, l.BundlePrefix); ns != "" {
		return ns
	}
	return bundle
}

func (l *Locator) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
