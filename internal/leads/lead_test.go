package leads

import (
	"testing"
	"time"
)

func TestFieldSetGroupsInFirstSeenOrder(t *testing.T) {
	t.Parallel()

	lead := Lead{Fields: []FieldValue{
		{Group: "core", Name: "email", Value: "a@x.com"},
		{Group: "social", Name: "twitter", Value: "ax"},
		{Group: "core", Name: "phone", Value: "555"},
	}}

	set := lead.FieldSet()
	if len(set.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(set.Groups))
	}
	if set.Groups[0].Name != "core" || len(set.Groups[0].Fields) != 2 {
		t.Fatalf("core group = %+v", set.Groups[0])
	}
	if set.Groups[1].Name != "social" || set.Groups[1].Fields[0].Name != "twitter" {
		t.Fatalf("social group = %+v", set.Groups[1])
	}
}

func TestStampRoundTripsThroughRefreshedAt(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 2*3600))
	entry := CacheEntry{LastRefresh: Stamp(at)}
	if entry.LastRefresh != "2026-03-04 03:06:07" {
		t.Fatalf("Stamp() = %q", entry.LastRefresh)
	}
	if !entry.RefreshedAt().Equal(at) {
		t.Fatalf("RefreshedAt() = %v, want %v", entry.RefreshedAt(), at)
	}
	if !(CacheEntry{LastRefresh: "yesterday"}).RefreshedAt().IsZero() {
		t.Fatalf("bad stamp should parse to zero time")
	}
}

func TestSocialCacheClone(t *testing.T) {
	t.Parallel()

	orig := SocialCache{"twitter": {Profile: map[string]any{"a": 1}}}
	clone := orig.Clone()
	delete(clone, "twitter")
	if _, ok := orig["twitter"]; !ok {
		t.Fatalf("Clone() shares the map with the original")
	}
	if !(CacheEntry{}).IsEmpty() {
		t.Fatalf("zero entry should be empty")
	}
}
