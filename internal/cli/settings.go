package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/provider"
	"roleplay-chat/backend/internal/settings"
	"roleplay-chat/backend/pkg/di"
)

func (a *App) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				s := settings.New(c.Store.Namespace(a.session), settings.Defaults(c.Config)).Load(ctx)
				printSettings(cmd, s)
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:   "set key=value...",
		Short: "Update settings (ttsEnabled, autoScroll, darkMode, apiProvider)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSettingsPatch(args)
			if err != nil {
				return err
			}
			return a.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				s := settings.New(c.Store.Namespace(a.session), settings.Defaults(c.Config)).Update(ctx, patch)
				printSettings(cmd, s)
				return nil
			})
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func printSettings(cmd *cobra.Command, s models.Settings) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %t\n", nameStyle.Render("ttsEnabled:"), s.TTSEnabled)
	fmt.Fprintf(out, "%s %t\n", nameStyle.Render("autoScroll:"), s.AutoScroll)
	fmt.Fprintf(out, "%s %t\n", nameStyle.Render("darkMode:"), s.DarkMode)
	fmt.Fprintf(out, "%s %s\n", nameStyle.Render("apiProvider:"), s.APIProvider)
}

// parseSettingsPatch turns key=value arguments into a patch
func parseSettingsPatch(args []string) (models.SettingsPatch, error) {
	var p models.SettingsPatch
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return p, fmt.Errorf("expected key=value, got %q", arg)
		}

		switch key {
		case "ttsEnabled", "autoScroll", "darkMode":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return p, fmt.Errorf("%s: %q is not a boolean", key, value)
			}
			switch key {
			case "ttsEnabled":
				p.TTSEnabled = &b
			case "autoScroll":
				p.AutoScroll = &b
			default:
				p.DarkMode = &b
			}
		case "apiProvider":
			kind, ok := provider.ParseKind(value)
			if !ok {
				return p, fmt.Errorf("unknown provider %q", value)
			}
			v := string(kind)
			p.APIProvider = &v
		default:
			return p, fmt.Errorf("unknown setting %q", key)
		}
	}
	return p, nil
}
