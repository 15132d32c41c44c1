// Package leads models the parts of a lead the integration layer reads and writes: its
// field values and its per-integration social cache.
package leads

import (
	"maps"
	"strings"
	"time"

	"github.com/mktstack/integrationhub/internal/integrations/identifier"
)

// TimestampLayout is the format of CacheEntry.LastRefresh, always in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Lead is a contact record.
type Lead struct {
	ID          int64
	Fields      []FieldValue
	SocialCache SocialCache
}

// FieldValue is one stored lead field. Group is empty for ungrouped fields.
type FieldValue struct {
	Group string `json:"group,omitempty"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// FieldSet groups stored fields in first-seen group order for identifier matching.
func (l *Lead) FieldSet() identifier.FieldSet {
	return FieldSetFromValues(l.Fields)
}

func FieldSetFromValues(values []FieldValue) identifier.FieldSet {
	var groups []identifier.Group
	index := map[string]int{}
	for _, v := range values {
		name := strings.TrimSpace(v.Group)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, identifier.Group{Name: name})
		}
		groups[i].Fields = append(groups[i].Fields, identifier.Field{Name: v.Name, Value: v.Value})
	}
	return identifier.FieldSet{Groups: groups}
}

// CacheEntry is the cached social data of one integration.
type CacheEntry struct {
	Profile     map[string]any `json:"profile"`
	Activity    map[string]any `json:"activity"`
	LastRefresh string         `json:"lastRefresh"`
}

// IsEmpty reports an entry with neither profile nor activity data.
func (e CacheEntry) IsEmpty() bool {
	return len(e.Profile) == 0 && len(e.Activity) == 0
}

// RefreshedAt parses LastRefresh. The zero time is returned for a missing or bad stamp.
func (e CacheEntry) RefreshedAt() time.Time {
	t, err := time.ParseInLocation(TimestampLayout, e.LastRefresh, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SocialCache maps an integration name to its cached data.
type SocialCache map[string]CacheEntry

// Clone returns a copy whose entries can be replaced without touching the original.
func (c SocialCache) Clone() SocialCache {
	out := make(SocialCache, len(c))
	maps.Copy(out, c)
	return out
}

// Stamp formats t as a LastRefresh value.
func Stamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
