package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
	"github.com/spf13/cobra"
)

var integrationsCmd = &cobra.Command{
	Use:     "integrations",
	Aliases: []string{"integration"},
	Short:   "Inspect and configure discovered integrations.",
}

type integrationRow struct {
	Name      string             `json:"name"`
	Bundle    string             `json:"plugin_bundle"`
	Published bool               `json:"is_published"`
	Priority  int                `json:"priority"`
	Features  []settings.Feature `json:"supported_features"`
}

func toIntegrationRow(i registry.Integration) integrationRow {
	row := integrationRow{Name: i.Name(), Priority: registry.Priority(i)}
	if cfg := i.Settings(); cfg != nil {
		row.Bundle = cfg.PluginBundle
		row.Published = cfg.Published
		row.Features = cfg.SupportedFeatures
	}
	return row
}

func parseFeatures(raw []string) ([]settings.Feature, error) {
	var out []settings.Feature
	for _, r := range raw {
		f, ok := settings.ParseFeature(r)
		if !ok {
			return nil, usageError("unknown feature %q", r)
		}
		out = append(out, f)
	}
	return out, nil
}

var (
	listFeatures     []string
	listAlphabetical bool
)

var integrationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List integrations in registry order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		features, err := parseFeatures(listFeatures)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			integrations, err := a.registry.List(ctx, registry.Filter{Features: features, Alphabetical: listAlphabetical})
			if err != nil {
				return err
			}
			out := make([]integrationRow, 0, len(integrations))
			rows := make([][]string, 0, len(integrations))
			for _, i := range integrations {
				r := toIntegrationRow(i)
				out = append(out, r)
				rows = append(rows, []string{r.Name, r.Bundle, strconv.FormatBool(r.Published), strconv.Itoa(r.Priority), joinFeatures(r.Features)})
			}
			return render(cmd.OutOrStdout(), out, []string{"NAME", "BUNDLE", "PUBLISHED", "PRIORITY", "FEATURES"}, rows)
		})
	},
}

var integrationsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show one integration with masked settings.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			integration, err := a.registry.Get(ctx, args[0])
			if err != nil {
				return err
			}
			icon, err := a.registry.IconPath(ctx, integration.Name())
			if err != nil {
				return err
			}
			out := struct {
				integrationRow
				Icon     string             `json:"icon"`
				Settings *settings.Settings `json:"settings,omitempty"`
			}{integrationRow: toIntegrationRow(integration), Icon: icon}
			if cfg := integration.Settings(); cfg != nil {
				masked := cfg.Masked()
				out.Settings = &masked
			}
			return writeJSON(cmd.OutOrStdout(), out)
		})
	},
}

var (
	setPublish   bool
	setUnpublish bool
	setPriority  int
	setFeatures  []string
	setAPIKeys   []string
)

var integrationsSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Update an integration's settings. Unset flags keep the stored values.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := buildUpdate(cmd)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			saved, err := a.registry.UpdateSettings(ctx, args[0], update)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), saved.Masked())
		})
	},
}

func buildUpdate(cmd *cobra.Command) (settings.Update, error) {
	var update settings.Update
	if setPublish && setUnpublish {
		return update, usageError("--publish and --unpublish are mutually exclusive")
	}
	if setPublish || setUnpublish {
		published := setPublish
		update.Published = &published
	}
	if cmd.Flags().Changed("priority") {
		priority := setPriority
		update.Priority = &priority
	}
	if cmd.Flags().Changed("feature") {
		features, err := parseFeatures(setFeatures)
		if err != nil {
			return update, err
		}
		update.SupportedFeatures = features
	}
	if len(setAPIKeys) > 0 {
		update.APIKeys = make(map[string]string, len(setAPIKeys))
		for _, kv := range setAPIKeys {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return update, usageError("--api-key expects key=value, got %q", kv)
			}
			update.APIKeys[strings.TrimSpace(k)] = v
		}
	}
	return update, nil
}

func joinFeatures(features []settings.Feature) string {
	parts := make([]string, 0, len(features))
	for _, f := range features {
		parts = append(parts, string(f))
	}
	return strings.Join(parts, ",")
}

func init() {
	integrationsListCmd.Flags().StringSliceVar(&listFeatures, "feature", nil, "Only list integrations supporting any of these features.")
	integrationsListCmd.Flags().BoolVar(&listAlphabetical, "alphabetical", false, "Order by name instead of priority.")

	integrationsSetCmd.Flags().BoolVar(&setPublish, "publish", false, "Publish the integration.")
	integrationsSetCmd.Flags().BoolVar(&setUnpublish, "unpublish", false, "Unpublish the integration.")
	integrationsSetCmd.Flags().IntVar(&setPriority, "priority", 0, "Ordering weight; lower sorts first.")
	integrationsSetCmd.Flags().StringSliceVar(&setFeatures, "feature", nil, "Replace the supported feature list.")
	integrationsSetCmd.Flags().StringArrayVar(&setAPIKeys, "api-key", nil, "Set an api key as key=value. Repeatable.")

	integrationsCmd.AddCommand(integrationsListCmd, integrationsShowCmd, integrationsSetCmd)
}
