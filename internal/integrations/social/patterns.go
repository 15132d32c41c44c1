// Package social holds the well-known social profile URL table and the built-in social
// integrations.
package social

import (
	"regexp"
	"strings"
)

// HandlePlaceholder is replaced with a handle in profile URL templates.
const HandlePlaceholder = "%handle%"

type findPattern struct {
	service  string
	patterns []*regexp.Regexp
}

// The find view. Service keys are a fixed contract: the field catalog derives
// <service>ProfileHandle keys from them.
var findTable = []findPattern{
	{"twitter", compile(`twitter.com/(.*?)($|/)`)},
	{"facebook", compile(`facebook.com/(.*?)($|/)`, `fb.me/(.*?)($|/)`)},
	{"linkedin", compile(`linkedin.com/in/(.*?)($|/)`)},
	{"instagram", compile(`instagram.com/(.*?)($|/)`)},
	{"pinterest", compile(`pinterest.com/(.*?)($|/)`)},
	{"klout", compile(`klout.com/(.*?)($|/)`)},
	{"youtube", compile(`youtube.com/user/(.*?)($|/)`, `youtu.be/user/(.*?)($|/)`)},
	{"flickr", compile(`flickr.com/photos/(.*?)($|/)`)},
	{"skype", compile(`skype:(.*?)($|\?)`)},
	{"google", compile(`plus.google.com/(.*?)($|/)`)},
}

type urlTemplate struct {
	service  string
	template string
}

// The template view. Google uses the googleplus key here.
var templateTable = []urlTemplate{
	{"twitter", "https://twitter.com/%handle%"},
	{"facebook", "https://facebook.com/%handle%"},
	{"linkedin", "https://linkedin.com/in/%handle%"},
	{"instagram", "https://instagram.com/%handle%"},
	{"pinterest", "https://pinterest.com/%handle%"},
	{"klout", "https://klout.com/%handle%"},
	{"youtube", "https://youtube.com/user/%handle%"},
	{"flickr", "https://flickr.com/photos/%handle%"},
	{"skype", "skype:%handle%?call"},
	{"googleplus", "https://plus.google.com/%handle%"},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// Services returns the find-view service keys in table order.
func Services() []string {
	out := make([]string, 0, len(findTable))
	for _, p := range findTable {
		out = append(out, p.service)
	}
	return out
}

// FindPatterns returns the handle-capturing expressions per service.
func FindPatterns() map[string][]string {
	out := make(map[string][]string, len(findTable))
	for _, p := range findTable {
		for _, re := range p.patterns {
			out[p.service] = append(out[p.service], re.String())
		}
	}
	return out
}

// URLTemplates returns the profile URL template per service.
func URLTemplates() map[string]string {
	out := make(map[string]string, len(templateTable))
	for _, t := range templateTable {
		out[t.service] = t.template
	}
	return out
}

// ExtractHandle returns the handle captured from rawURL by the service's patterns.
func ExtractHandle(service, rawURL string) (string, bool) {
	for _, p := range findTable {
		if p.service != service {
			continue
		}
		for _, re := range p.patterns {
			m := re.FindStringSubmatch(rawURL)
			if len(m) > 1 && m[1] != "" {
				return m[1], true
			}
		}
	}
	return "", false
}

// DetectHandle tries every service in table order.
func DetectHandle(rawURL string) (service, handle string, ok bool) {
	for _, p := range findTable {
		if h, found := ExtractHandle(p.service, rawURL); found {
			return p.service, h, true
		}
	}
	return "", "", false
}

// ProfileURL fills the service template with handle. The find-view key google is accepted
// for googleplus.
func ProfileURL(service, handle string) (string, bool) {
	if service == "google" {
		service = "googleplus"
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", false
	}
	for _, t := range templateTable {
		if t.service == service {
			return strings.ReplaceAll(t.template, HandlePlaceholder, handle), true
		}
	}
	return "", false
}
