package sync

import (
	"context"
	"errors"
	"fmt"
)

// Runner executes a single pass.
type Runner interface {
	RunOnce(context.Context) error
}

// Rebuilder is a cache that can be dropped and rebuilt eagerly.
type Rebuilder interface {
	Invalidate()
	Build(ctx context.Context) error
}

// Invalidator is a derived cache that rebuilds lazily on next use.
type Invalidator interface {
	Invalidate()
}

// RegistryRefresh re-runs plugin discovery so bundles installed or toggled since the last
// build show up without a restart. Dependents are dropped after the registry.
type RegistryRefresh struct {
	Registry   Rebuilder
	Dependents []Invalidator
}

func (r RegistryRefresh) RunOnce(ctx context.Context) error {
	if r.Registry == nil {
		return errors.New("registry refresh has no registry")
	}
	r.Registry.Invalidate()
	for _, d := range r.Dependents {
		if d != nil {
			d.Invalidate()
		}
	}
	if err := r.Registry.Build(ctx); err != nil {
		return fmt.Errorf("rebuild registry: %w", err)
	}
	return nil
}
