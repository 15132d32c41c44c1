package social

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// ShareComponent renders one share button from its share settings. settings["keys"] holds
// the integration's api keys.
type ShareComponent func(settings map[string]any) templ.Component

// ShareTemplates returns the built-in share button components keyed by template id,
// <bundle>:Integration/<name>:share.
func ShareTemplates(bundle string) map[string]ShareComponent {
	if bundle == "" {
		bundle = Namespace
	}
	id := func(name string) string {
		return bundle + ":Integration/" + name + ":share"
	}
	return map[string]ShareComponent{
		id("Twitter"):  twitterShare,
		id("Facebook"): facebookShare,
		id("LinkedIn"): linkedInShare,
	}
}

func twitterShare(settings map[string]any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		via := settingString(settings, "via")
		size := settingString(settings, "size")
		if size == "" {
			size = "medium"
		}
		_, err := fmt.Fprintf(w,
			`<a href="%s" class="twitter-share-button" data-via="%s" data-size="%s">Tweet</a>`,
			templ.EscapeString(string(templ.URL("https://twitter.com/share"))),
			templ.EscapeString(strings.TrimPrefix(via, "@")),
			templ.EscapeString(size),
		)
		return err
	})
}

func facebookShare(settings map[string]any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		layout := settingString(settings, "layout")
		if layout == "" {
			layout = "button_count"
		}
		appID := ""
		if keys, ok := settings["keys"].(map[string]string); ok {
			appID = keys["app_id"]
		}
		_, err := fmt.Fprintf(w,
			`<div class="fb-share-button" data-layout="%s" data-app-id="%s"></div>`,
			templ.EscapeString(layout),
			templ.EscapeString(appID),
		)
		return err
	})
}

func linkedInShare(settings map[string]any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		counter := settingString(settings, "counter")
		if counter == "" {
			counter = "right"
		}
		_, err := fmt.Fprintf(w,
			`<script type="IN/Share" data-counter="%s"></script>`,
			templ.EscapeString(counter),
		)
		return err
	})
}

func settingString(settings map[string]any, key string) string {
	v, ok := settings[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
