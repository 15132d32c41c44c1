// Package translation resolves dotted message keys such as integration.twitter.name to
// display strings. Missing keys resolve to themselves.
package translation

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable set of messages for one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
	keys    map[string]struct{}
}

// New builds a catalog from flat key/message pairs.
func New(tag language.Tag, messages map[string]string) (*Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(tag))
	keys := make(map[string]struct{}, len(messages))
	for key, msg := range messages {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		// Messages are plain text; escape verbs so the printer does not interpret them.
		if err := b.SetString(tag, key, strings.ReplaceAll(msg, "%", "%%")); err != nil {
			return nil, fmt.Errorf("translation %q: %w", key, err)
		}
		keys[key] = struct{}{}
	}
	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
		keys:    keys,
	}, nil
}

// Empty returns a catalog without messages.
func Empty() *Catalog {
	c, _ := New(language.English, nil)
	return c
}

// LoadFile reads a YAML translation file. Nested mappings are joined with dots:
//
//	integration:
//	  twitter:
//	    name: Twitter handle
//
// yields integration.twitter.name.
func LoadFile(path string, tag language.Tag) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read translations: %w", err)
	}
	return Parse(raw, tag)
}

// Parse decodes YAML translation content.
func Parse(raw []byte, tag language.Tag) (*Catalog, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode translations: %w", err)
	}
	messages := map[string]string{}
	flatten("", tree, messages)
	return New(tag, messages)
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case nil:
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

// Translate returns the message for key, or key when none exists.
func (c *Catalog) Translate(key string) string {
	if c == nil {
		return key
	}
	if _, ok := c.keys[key]; !ok {
		return key
	}
	return c.printer.Sprintf(key)
}

// Language returns the catalog language.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Keys returns the known message keys in sorted order.
func (c *Catalog) Keys() []string {
	out := make([]string, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
