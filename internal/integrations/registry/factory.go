package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// ErrNotInstantiable marks a discovered integration that has no concrete implementation,
// such as a shared base manifest. The registry skips it without reporting a failure.
var ErrNotInstantiable = errors.New("integration is not instantiable")

// ClassRef identifies an integration implementation by plugin namespace and name.
type ClassRef struct {
	Namespace string
	Name      string
}

func (c ClassRef) String() string {
	return c.Namespace + "/" + c.Name
}

// Deps are the shared collaborators handed to every constructor.
type Deps struct {
	HTTP   *http.Client
	Logger *slog.Logger
}

type Constructor func(Deps) (Integration, error)

// Factory is the table of known integration constructors.
type Factory struct {
	mu    sync.RWMutex
	ctors map[ClassRef]Constructor
}

func NewFactory() *Factory {
	return &Factory{ctors: make(map[ClassRef]Constructor)}
}

// Register adds a constructor for ref.
func (f *Factory) Register(ref ClassRef, ctor Constructor) error {
	ref.Namespace = strings.TrimSpace(ref.Namespace)
	ref.Name = strings.TrimSpace(ref.Name)
	if ref.Namespace == "" || ref.Name == "" {
		return fmt.Errorf("integration class reference %q is incomplete", ref)
	}
	if ctor == nil {
		return fmt.Errorf("integration %s has a nil constructor", ref)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.ctors[ref]; exists {
		return fmt.Errorf("integration %s already registered", ref)
	}
	f.ctors[ref] = ctor
	return nil
}

// Construct builds the integration for ref. Unknown references return ErrNotInstantiable.
func (f *Factory) Construct(ref ClassRef, deps Deps) (Integration, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[ref]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotInstantiable)
	}

	integration, err := ctor(deps)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotInstantiable)
	}
	return integration, nil
}

// Len returns the number of registered constructors.
func (f *Factory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ctors)
}
