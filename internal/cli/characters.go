package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"roleplay-chat/backend/pkg/di"
)

func (a *App) charactersCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "characters",
		Aliases: []string{"ls"},
		Short:   "List available characters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd, func(_ context.Context, c *di.Container) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Characters (%d)", c.Catalog.Len())))
				for _, ch := range c.Catalog.List() {
					fmt.Fprintf(out, "%s %s %s\n", ch.Avatar, speakerStyle(&ch).Render(ch.Name), idStyle.Render("("+ch.ID+")"))
					if ch.Description != "" {
						fmt.Fprintf(out, "   %s\n", dimStyle.Render(ch.Description))
					}
				}
				return nil
			})
		},
	}
}
