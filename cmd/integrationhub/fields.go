package main

import (
	"context"

	"github.com/mktstack/integrationhub/internal/integrations/catalog"
	"github.com/spf13/cobra"
)

var (
	fieldsIntegration string
	fieldsStrict      bool
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Print the field label catalog used for lead field matching.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := catalog.Options{SilenceFieldErrors: !fieldsStrict}
		return withApp(func(ctx context.Context, a *app) error {
			var entries []catalog.Entry
			if fieldsIntegration != "" {
				labels, err := a.catalog.ForIntegration(ctx, fieldsIntegration, opts)
				if err != nil {
					return err
				}
				entries = []catalog.Entry{{Integration: fieldsIntegration, Labels: labels}}
			} else {
				built, err := a.catalog.Build(ctx, opts)
				if err != nil {
					return err
				}
				entries = built.Entries
			}

			var rows [][]string
			for _, e := range entries {
				for _, l := range e.Labels {
					rows = append(rows, []string{e.Integration, l.Key, l.Label})
				}
			}
			return render(cmd.OutOrStdout(), entries, []string{"INTEGRATION", "KEY", "LABEL"}, rows)
		})
	},
}

func init() {
	fieldsCmd.Flags().StringVar(&fieldsIntegration, "integration", "", "Only print one integration's labels.")
	fieldsCmd.Flags().BoolVar(&fieldsStrict, "strict", false, "Fail when an integration cannot report its fields.")
}
