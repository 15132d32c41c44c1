package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mktstack/integrationhub/internal/leads"
)

const getLeadSQL = `
SELECT id, fields, social_cache
FROM leads
WHERE id = $1`

const createLeadSQL = `
INSERT INTO leads (fields, social_cache)
VALUES ($1, '{}'::jsonb)
RETURNING id`

const saveSocialCacheSQL = `
UPDATE leads
SET social_cache = $2, updated_at = now()
WHERE id = $1`

// GetLead loads a lead with its fields and social cache.
func (s *Store) GetLead(ctx context.Context, id int64) (*leads.Lead, error) {
	var (
		lead   leads.Lead
		fields []byte
		cache  []byte
	)
	if err := s.db.QueryRow(ctx, getLeadSQL, id).Scan(&lead.ID, &fields, &cache); err != nil {
		return nil, notFound(err)
	}
	if err := decodeJSON(fields, &lead.Fields); err != nil {
		return nil, fmt.Errorf("decode fields for lead %d: %w", id, err)
	}
	if err := decodeJSON(cache, &lead.SocialCache); err != nil {
		return nil, fmt.Errorf("decode social cache for lead %d: %w", id, err)
	}
	if lead.SocialCache == nil {
		lead.SocialCache = leads.SocialCache{}
	}
	return &lead, nil
}

// CreateLead stores a lead with an empty social cache and returns its ID.
func (s *Store) CreateLead(ctx context.Context, fields []leads.FieldValue) (int64, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("encode lead fields: %w", err)
	}
	var id int64
	if err := s.db.QueryRow(ctx, createLeadSQL, raw).Scan(&id); err != nil {
		return 0, fmt.Errorf("create lead: %w", err)
	}
	return id, nil
}

// SaveSocialCache replaces a lead's social cache.
func (s *Store) SaveSocialCache(ctx context.Context, leadID int64, cache leads.SocialCache) error {
	if cache == nil {
		cache = leads.SocialCache{}
	}
	raw, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("encode social cache: %w", err)
	}
	tag, err := s.db.Exec(ctx, saveSocialCacheSQL, leadID, raw)
	if err != nil {
		return fmt.Errorf("save social cache for lead %d: %w", leadID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
