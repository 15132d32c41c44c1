package translation

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/language"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	c, err := New(language.English, map[string]string{
		"integration.twitter.name": "Twitter handle",
		"integration.gravatar.pct": "100% match",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{key: "integration.twitter.name", want: "Twitter handle"},
		{key: "integration.gravatar.pct", want: "100% match"},
		{key: "integration.twitter.missing", want: "integration.twitter.missing"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			if got := c.Translate(tt.key); got != tt.want {
				t.Fatalf("Translate(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestNilCatalogFallsBackToKey(t *testing.T) {
	t.Parallel()

	var c *Catalog
	if got := c.Translate("a.b"); got != "a.b" {
		t.Fatalf("Translate() = %q", got)
	}
}

func TestLoadFileFlattensNestedKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "messages.en.yaml")
	content := "integration:\n  twitter:\n    name: Twitter handle\n    followers: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	c, err := LoadFile(path, language.English)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := c.Translate("integration.twitter.name"); got != "Twitter handle" {
		t.Fatalf("Translate(name) = %q", got)
	}
	if got := c.Translate("integration.twitter.followers"); got != "3" {
		t.Fatalf("Translate(followers) = %q", got)
	}
	if keys := c.Keys(); len(keys) != 2 {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("integration: [unterminated"), language.English); err == nil {
		t.Fatalf("Parse() error = nil, want decode error")
	}
}
