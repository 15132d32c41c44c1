package social

import (
	"fmt"

	"github.com/mktstack/integrationhub/internal/integrations/registry"
)

// AbstractName is the shared Social manifest. It ships in the bundle but has no
// constructor, so discovery skips it.
const AbstractName = "Social"

var builtins = []struct {
	name string
	ctor registry.Constructor
}{
	{"Facebook", NewFacebook},
	{"Gravatar", NewGravatar},
	{"LinkedIn", NewLinkedIn},
	{"Twitter", NewTwitter},
}

// Register adds the built-in integrations to f under namespace. An empty namespace uses
// Namespace.
func Register(f *registry.Factory, namespace string) error {
	if namespace == "" {
		namespace = Namespace
	}
	for _, b := range builtins {
		if err := f.Register(registry.ClassRef{Namespace: namespace, Name: b.name}, b.ctor); err != nil {
			return fmt.Errorf("register %s: %w", b.name, err)
		}
	}
	return nil
}

// Names returns the built-in integration names.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for _, b := range builtins {
		out = append(out, b.name)
	}
	return out
}
