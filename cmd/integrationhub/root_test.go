package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mktstack/integrationhub/internal/config"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
	"github.com/spf13/cobra"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"serve"},
		{"migrate"},
		{"plugins", "scan"},
		{"plugins", "enable"},
		{"integrations", "list"},
		{"integration", "show"},
		{"integrations", "set"},
		{"fields"},
		{"leads", "refresh"},
		{"leads", "clear-cache"},
	} {
		cmd, _, err := rootCmd.Find(args)
		if err != nil || cmd == nil || cmd.Name() != args[len(args)-1] {
			t.Fatalf("command %v not registered: cmd=%v err=%v", args, cmd, err)
		}
	}
}

func TestCommandUsesStructuredLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "serve", args: []string{"serve"}, want: true},
		{name: "migrate", args: []string{"migrate"}, want: true},
		{name: "plugins scan", args: []string{"plugins", "scan"}, want: true},
		{name: "leads refresh", args: []string{"leads", "refresh"}, want: true},
		{name: "plugins list", args: []string{"plugins", "list"}, want: false},
		{name: "integrations list", args: []string{"integrations", "list"}, want: false},
		{name: "fields", args: []string{"fields"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd, _, err := rootCmd.Find(tc.args)
			if err != nil {
				t.Fatalf("Find(%v) error = %v", tc.args, err)
			}
			if got := commandUsesStructuredLogging(cmd); got != tc.want {
				t.Fatalf("commandUsesStructuredLogging(%q) = %v, want %v", cmd.CommandPath(), got, tc.want)
			}
		})
	}
}

func TestBuildUpdate(t *testing.T) {
	t.Cleanup(func() {
		setPublish, setUnpublish, setPriority, setFeatures, setAPIKeys = false, false, 0, nil, nil
	})

	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "set"}
		cmd.Flags().BoolVar(&setPublish, "publish", false, "")
		cmd.Flags().BoolVar(&setUnpublish, "unpublish", false, "")
		cmd.Flags().IntVar(&setPriority, "priority", 0, "")
		cmd.Flags().StringSliceVar(&setFeatures, "feature", nil, "")
		cmd.Flags().StringArrayVar(&setAPIKeys, "api-key", nil, "")
		return cmd
	}

	cmd := newCmd()
	if err := cmd.ParseFlags([]string{"--publish", "--priority", "0", "--feature", "public_profile,share_button", "--api-key", "bearer_token=abc"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	update, err := buildUpdate(cmd)
	if err != nil {
		t.Fatalf("buildUpdate() error = %v", err)
	}
	if update.Published == nil || !*update.Published {
		t.Fatalf("Published = %v", update.Published)
	}
	if update.Priority == nil || *update.Priority != 0 {
		t.Fatalf("an explicit zero priority should be kept: %v", update.Priority)
	}
	if len(update.SupportedFeatures) != 2 || update.SupportedFeatures[1] != settings.FeatureShareButton {
		t.Fatalf("SupportedFeatures = %v", update.SupportedFeatures)
	}
	if update.APIKeys["bearer_token"] != "abc" {
		t.Fatalf("APIKeys = %v", update.APIKeys)
	}

	cmd = newCmd()
	if err := cmd.ParseFlags([]string{"--api-key", "novalue"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if _, err := buildUpdate(cmd); err == nil {
		t.Fatalf("buildUpdate() error = nil for malformed api key")
	}

	cmd = newCmd()
	if err := cmd.ParseFlags([]string{"--publish", "--unpublish"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if _, err := buildUpdate(cmd); err == nil {
		t.Fatalf("buildUpdate() error = nil for conflicting publish flags")
	}
}

func TestRenderWritesJSONWhenNotATerminal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := render(&out, []string{"Twitter"}, []string{"NAME"}, [][]string{{"Twitter"}}); err != nil {
		t.Fatalf("render() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "[\n  \"Twitter\"\n]" {
		t.Fatalf("render() = %q", got)
	}
}

func TestWriteTableAlignsColumns(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := writeTable(&out, []string{"NAME", "PRIORITY"}, [][]string{{"Gravatar", "1"}, {"X", "2"}}); err != nil {
		t.Fatalf("writeTable() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "X         2") {
		t.Fatalf("writeTable() = %q", out.String())
	}
}

func TestLoadTranslationsDefaultsToEmptyCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := loadTranslations(config.Config{TranslationLanguage: "not a tag!"})
	if err != nil {
		t.Fatalf("loadTranslations() error = %v", err)
	}
	if got := catalog.Translate("integration.twitter.name"); got != "integration.twitter.name" {
		t.Fatalf("Translate() = %q", got)
	}
}
