package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/mktstack/integrationhub/internal/config"
	"github.com/spf13/cobra"
)

// withApp loads config, wires the services and runs fn until it returns or the process
// is interrupted.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()
	return asCommandError(fn(ctx, a))
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage installed plugin bundles.",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugin bundles.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			plugins, err := a.store.ListPlugins(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(plugins))
			for _, p := range plugins {
				rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Bundle, strconv.FormatBool(p.Enabled)})
			}
			return render(cmd.OutOrStdout(), plugins, []string{"ID", "BUNDLE", "ENABLED"}, rows)
		})
	},
}

var pluginsScanCmd = &cobra.Command{
	Use:         "scan",
	Short:       "Install every bundle directory under PLUGINS_DIR that is not installed yet.",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			installed, err := a.store.ListPlugins(ctx)
			if err != nil {
				return err
			}
			known := make(map[string]struct{}, len(installed))
			for _, p := range installed {
				known[p.Bundle] = struct{}{}
			}

			entries, err := os.ReadDir(a.cfg.PluginsDir)
			if err != nil {
				return err
			}
			added := 0
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				if _, ok := known[entry.Name()]; ok {
					continue
				}
				if _, err := os.Stat(filepath.Join(a.cfg.PluginsDir, entry.Name(), "Integration")); err != nil {
					continue
				}
				if _, err := a.store.UpsertPlugin(ctx, entry.Name(), true); err != nil {
					return err
				}
				slog.Info("plugin installed", "bundle", entry.Name())
				added++
			}
			if added > 0 {
				a.registry.Invalidate()
			}
			slog.Info("plugin scan complete", "installed", added)
			return nil
		})
	},
}

func pluginToggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " BUNDLE",
		Short: "Mark a plugin bundle as " + use + "d.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				id, err := a.store.UpsertPlugin(ctx, args[0], enabled)
				if err != nil {
					return err
				}
				cmd.Printf("plugin %s (%d) %sd\n", args[0], id, use)
				return nil
			})
		},
	}
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd, pluginsScanCmd, pluginToggleCmd("enable", true), pluginToggleCmd("disable", false))
}
