package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"roleplay-chat/backend/internal/speech"
	"roleplay-chat/backend/pkg/di"
	apperrors "roleplay-chat/backend/pkg/errors"
)

func (a *App) speakCommand() *cobra.Command {
	var fast bool

	cmd := &cobra.Command{
		Use:   "speak <character-id> <text>",
		Short: "Speak text in a character's voice",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				ch, err := c.Catalog.Lookup(args[0])
				if err != nil {
					return fmt.Errorf("%s: %s", apperrors.GetErrorMessage(err), args[0])
				}
				if !c.Speech.Supported() {
					return errors.New(apperrors.ErrSpeechUnavailable.Message)
				}

				voice := speech.CharacterVoice(ch)
				if fast {
					voice = speech.FastVoice(ch.ID)
				}
				if err := c.Speech.Speak(ctx, strings.Join(args[1:], " "), voice).Wait(); err != nil {
					return errors.New(apperrors.GetErrorMessage(err))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", false, "Use the demo view's voice map instead of the character profile")
	return cmd
}
