package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/mktstack/integrationhub/internal/integrations/profilesync"
	"github.com/mktstack/integrationhub/internal/leads"
	"github.com/spf13/cobra"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Refresh or clear the social profile cache of a lead.",
}

var (
	leadIntegration string
	leadDryRun      bool
)

func parseLeadID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError("invalid lead id %q", raw)
	}
	return id, nil
}

var leadsRefreshCmd = &cobra.Command{
	Use:         "refresh LEAD_ID",
	Short:       "Fetch fresh profile data for a lead from every published social integration.",
	Args:        cobra.ExactArgs(1),
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := parseLeadID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			var result profilesync.Result
			err := a.locker.WithLead(ctx, leadID, func(ctx context.Context) error {
				lead, err := a.store.GetLead(ctx, leadID)
				if err != nil {
					return err
				}
				result, err = a.profiles.Profiles(ctx, lead, profilesync.Options{
					Integration: leadIntegration,
					Refresh:     true,
					SkipPersist: leadDryRun,
				})
				return err
			})
			if err != nil {
				return err
			}
			slog.Info("lead refreshed", "lead_id", leadID, "integrations", len(result.Cache), "persisted", !leadDryRun)
			return writeJSON(cmd.OutOrStdout(), result)
		})
	},
}

var leadsClearCmd = &cobra.Command{
	Use:   "clear-cache LEAD_ID",
	Short: "Drop a lead's cached social data for one or all integrations.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := parseLeadID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			var cache leads.SocialCache
			err := a.locker.WithLead(ctx, leadID, func(ctx context.Context) error {
				lead, err := a.store.GetLead(ctx, leadID)
				if err != nil {
					return err
				}
				cache, err = a.profiles.ClearCache(ctx, lead, leadIntegration)
				return err
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), profilesync.Result{Cache: cache})
		})
	},
}

func init() {
	leadsRefreshCmd.Flags().StringVar(&leadIntegration, "integration", "", "Refresh only this integration.")
	leadsRefreshCmd.Flags().BoolVar(&leadDryRun, "dry-run", false, "Print the refreshed cache without saving it.")
	leadsClearCmd.Flags().StringVar(&leadIntegration, "integration", "", "Clear only this integration's entry.")

	leadsCmd.AddCommand(leadsRefreshCmd, leadsClearCmd)
}
