package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"roleplay-chat/backend/internal/history"
	"roleplay-chat/backend/pkg/di"
	apperrors "roleplay-chat/backend/pkg/errors"
)

func (a *App) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear saved transcripts",
	}

	show := &cobra.Command{
		Use:   "show <character-id>",
		Short: "Print the saved transcript for a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				ch, err := c.Catalog.Lookup(args[0])
				if err != nil {
					return fmt.Errorf("%s: %s", apperrors.GetErrorMessage(err), args[0])
				}

				h := history.New(c.Store.Namespace(a.session))
				out := cmd.OutOrStdout()
				msgs := h.Load(ctx, ch.ID)
				if len(msgs) == 0 {
					fmt.Fprintln(out, dimStyle.Render("No saved messages for "+ch.Name+"."))
					return nil
				}

				header := fmt.Sprintf("%s (%d messages)", ch.Name, len(msgs))
				if at, ok := h.LastUpdated(ctx, ch.ID); ok {
					header += " updated " + at.Local().Format(time.RFC822)
				}
				fmt.Fprintln(out, headerStyle.Render(header))
				for _, m := range msgs {
					printMessage(out, ch, m)
				}
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <character-id>",
		Short: "Delete the saved transcript for a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				ch, err := c.Catalog.Lookup(args[0])
				if err != nil {
					return fmt.Errorf("%s: %s", apperrors.GetErrorMessage(err), args[0])
				}
				history.New(c.Store.Namespace(a.session)).Clear(ctx, ch.ID)
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("Cleared history for "+ch.Name+"."))
				return nil
			})
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}
