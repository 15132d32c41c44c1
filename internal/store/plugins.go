package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/mktstack/integrationhub/internal/integrations/locator"
)

const listPluginsSQL = `
SELECT id, bundle, enabled
FROM plugins
ORDER BY id`

// ListPlugins returns every installed plugin in install order.
func (s *Store) ListPlugins(ctx context.Context) ([]locator.Plugin, error) {
	rows, err := s.db.Query(ctx, listPluginsSQL)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	plugins, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (locator.Plugin, error) {
		var p locator.Plugin
		err := row.Scan(&p.ID, &p.Bundle, &p.Enabled)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	return plugins, nil
}

const upsertPluginSQL = `
INSERT INTO plugins (bundle, enabled)
VALUES ($1, $2)
ON CONFLICT (bundle) DO UPDATE SET enabled = EXCLUDED.enabled
RETURNING id`

// UpsertPlugin installs a bundle or updates its enabled flag.
func (s *Store) UpsertPlugin(ctx context.Context, bundle string, enabled bool) (int64, error) {
	bundle = strings.TrimSpace(bundle)
	if bundle == "" {
		return 0, fmt.Errorf("plugin bundle is required")
	}
	var id int64
	if err := s.db.QueryRow(ctx, upsertPluginSQL, bundle, enabled).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert plugin %s: %w", bundle, err)
	}
	return id, nil
}
