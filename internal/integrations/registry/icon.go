package registry

import (
	"context"
	"io/fs"
	"path"
	"strings"
)

// GenericIconPath is served when an integration ships no icon of its own.
const GenericIconPath = "assets/img/generic.png"

// IconPath returns the asset path of the named integration's icon relative to the assets root.
func (r *Registry) IconPath(ctx context.Context, name string) (string, error) {
	d, err := r.Descriptor(ctx, name)
	if err != nil {
		return "", err
	}
	candidate := path.Join("plugins", d.Namespace, "Assets", "img", strings.ToLower(d.Name)+".png")
	if r.opts.Assets == nil {
		return GenericIconPath, nil
	}
	if info, err := fs.Stat(r.opts.Assets, candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	return GenericIconPath, nil
}
