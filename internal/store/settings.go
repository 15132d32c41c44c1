package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
)

const settingsColumns = `
	s.id, s.name, COALESCE(s.plugin_id, 0), COALESCE(p.bundle, ''), s.is_published,
	s.supported_features, s.feature_settings, s.api_keys, s.priority`

const listSettingsSQL = `
SELECT` + settingsColumns + `
FROM integration_settings s
LEFT JOIN plugins p ON p.id = s.plugin_id
ORDER BY s.id`

const getSettingsSQL = `
SELECT` + settingsColumns + `
FROM integration_settings s
LEFT JOIN plugins p ON p.id = s.plugin_id
WHERE s.name = $1`

const upsertSettingsSQL = `
INSERT INTO integration_settings
	(name, plugin_id, is_published, supported_features, feature_settings, api_keys, priority)
VALUES ($1, NULLIF($2::bigint, 0), $3, $4, $5, $6, $7)
ON CONFLICT (name) DO UPDATE SET
	plugin_id = EXCLUDED.plugin_id,
	is_published = EXCLUDED.is_published,
	supported_features = EXCLUDED.supported_features,
	feature_settings = EXCLUDED.feature_settings,
	api_keys = EXCLUDED.api_keys,
	priority = EXCLUDED.priority
RETURNING id`

// ListSettings returns every persisted integration settings record.
func (s *Store) ListSettings(ctx context.Context) ([]settings.Settings, error) {
	rows, err := s.db.Query(ctx, listSettingsSQL)
	if err != nil {
		return nil, fmt.Errorf("list integration settings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (settings.Settings, error) {
		return scanSettings(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list integration settings: %w", err)
	}
	return out, nil
}

// GetSettings loads one record by integration name.
func (s *Store) GetSettings(ctx context.Context, name string) (settings.Settings, error) {
	out, err := scanSettings(s.db.QueryRow(ctx, getSettingsSQL, name))
	if err != nil {
		return settings.Settings{}, notFound(err)
	}
	return out, nil
}

// SaveSettings inserts or updates a record by name and sets its ID.
func (s *Store) SaveSettings(ctx context.Context, in *settings.Settings) error {
	n := in.Normalized()
	if err := n.Validate(); err != nil {
		return err
	}
	features, err := settings.EncodeJSON(n.SupportedFeatures)
	if err != nil {
		return fmt.Errorf("encode supported features: %w", err)
	}
	featureSettings, err := settings.EncodeJSON(n.FeatureSettings)
	if err != nil {
		return fmt.Errorf("encode feature settings: %w", err)
	}
	apiKeys, err := settings.EncodeJSON(n.APIKeys)
	if err != nil {
		return fmt.Errorf("encode api keys: %w", err)
	}

	var id int64
	err = s.db.QueryRow(ctx, upsertSettingsSQL,
		n.Name, n.PluginID, n.Published, features, featureSettings, apiKeys, n.Priority,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("save integration settings %s: %w", n.Name, err)
	}
	in.ID = id
	return nil
}

func scanSettings(row pgx.Row) (settings.Settings, error) {
	var (
		out             settings.Settings
		features        []byte
		featureSettings []byte
		apiKeys         []byte
	)
	err := row.Scan(
		&out.ID, &out.Name, &out.PluginID, &out.PluginBundle, &out.Published,
		&features, &featureSettings, &apiKeys, &out.Priority,
	)
	if err != nil {
		return settings.Settings{}, err
	}
	if err := settings.DecodeJSON(features, &out.SupportedFeatures); err != nil {
		return settings.Settings{}, fmt.Errorf("decode supported features for %s: %w", out.Name, err)
	}
	if err := settings.DecodeJSON(featureSettings, &out.FeatureSettings); err != nil {
		return settings.Settings{}, fmt.Errorf("decode feature settings for %s: %w", out.Name, err)
	}
	if err := settings.DecodeJSON(apiKeys, &out.APIKeys); err != nil {
		return settings.Settings{}, fmt.Errorf("decode api keys for %s: %w", out.Name, err)
	}
	return out.Normalized(), nil
}
