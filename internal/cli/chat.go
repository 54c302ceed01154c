package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"roleplay-chat/backend/internal/character"
	"roleplay-chat/backend/internal/conversation"
	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/pkg/di"
	apperrors "roleplay-chat/backend/pkg/errors"
)

const chatHelp = `Commands:
  /character <id>  switch character
  /clear           clear this conversation
  /reset           clear messages and deselect the character
  /tts on|off      toggle speech
  /stop            stop speaking
  /quit            leave`

var errQuit = errors.New("quit")

type chatOptions struct {
	character string
	fast      bool
	stream    bool
}

func (a *App) chatCommand() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation. Without --character the last
selected character is restored. Type /help for in-chat commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				in := bufio.NewScanner(cmd.InOrStdin())
				out := cmd.OutOrStdout()
				if opts.fast {
					return a.chatFast(ctx, c, in, out, opts)
				}
				return a.chat(ctx, c, in, out, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.character, "character", "c", "", "Character id to talk to")
	cmd.Flags().BoolVar(&opts.fast, "fast", false, "Use the latency-optimized client without history")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Print the reply as it is generated")
	return cmd
}

func (a *App) chat(ctx context.Context, c *di.Container, in *bufio.Scanner, out io.Writer, opts chatOptions) error {
	o, err := c.Conversation(ctx, a.session)
	if err != nil {
		return err
	}

	if opts.character != "" {
		if err := selectAndWait(ctx, o, opts.character); err != nil {
			return err
		}
	} else if loaded, ok := o.Restore(ctx); ok {
		<-loaded
	} else {
		return fmt.Errorf("no character selected, pass --character (one of: %s)", strings.Join(characterIDs(c), ", "))
	}

	printBanner(out, o.Snapshot().Character)
	for _, m := range o.Snapshot().Messages {
		printMessage(out, o.Snapshot().Character, m)
	}

	var events <-chan conversation.Event
	if opts.stream {
		ch, unsubscribe := o.Subscribe(256)
		defer unsubscribe()
		events = ch
	}

	for prompt(out); in.Scan(); prompt(out) {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if err := a.chatCommandLine(ctx, o, out, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				printError(out, err.Error())
			}
			continue
		}

		submit := o.SubmitMessage
		if opts.stream {
			submit = o.SubmitMessageStream
		}
		pending, err := submit(ctx, line)
		if err != nil {
			printError(out, apperrors.GetErrorMessage(err))
			continue
		}

		ch := o.Snapshot().Character
		var reply *models.Message
		if opts.stream {
			reply, err = streamReply(ctx, out, ch, events, pending)
		} else {
			fmt.Fprintln(out, dimStyle.Render(ch.DisplayName()+" is typing..."))
			reply, err = pending.Wait(ctx)
			if reply != nil {
				printMessage(out, ch, *reply)
			}
		}
		if err != nil && !errors.Is(err, conversation.ErrDiscarded) {
			printError(out, o.Snapshot().Error)
		}
	}
	return in.Err()
}

// streamReply prints chunks for the pending reply as they arrive
func streamReply(ctx context.Context, out io.Writer, ch *models.Character, events <-chan conversation.Event, p *conversation.Pending) (*models.Message, error) {
	fmt.Fprint(out, speakerStyle(ch).Render(ch.DisplayName()+":")+" ")
	printed := false
	drain := func() {
		for {
			select {
			case ev := <-events:
				if ev.Type == conversation.EventChunk {
					fmt.Fprint(out, ev.Chunk)
					printed = true
				}
			default:
				return
			}
		}
	}

wait:
	for {
		select {
		case ev := <-events:
			if ev.Type == conversation.EventChunk {
				fmt.Fprint(out, ev.Chunk)
				printed = true
			}
		case <-p.Done():
			drain()
			break wait
		}
	}

	reply, err := p.Wait(ctx)
	if reply != nil && !printed {
		fmt.Fprint(out, reply.Text)
	}
	fmt.Fprintln(out)
	return reply, err
}

func (a *App) chatCommandLine(ctx context.Context, o *conversation.Orchestrator, out io.Writer, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/clear":
		o.ClearMessages(ctx)
		fmt.Fprintln(out, dimStyle.Render("Conversation cleared."))
	case "/reset":
		o.ResetConversation(ctx)
		fmt.Fprintln(out, dimStyle.Render("Conversation reset. Pick a character with /character <id>."))
	case "/character":
		if len(fields) < 2 {
			return errors.New("usage: /character <id>")
		}
		if err := selectAndWait(ctx, o, fields[1]); err != nil {
			return err
		}
		printBanner(out, o.Snapshot().Character)
		for _, m := range o.Snapshot().Messages {
			printMessage(out, o.Snapshot().Character, m)
		}
	case "/tts":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			return errors.New("usage: /tts on|off")
		}
		on := fields[1] == "on"
		o.UpdateSettings(ctx, models.SettingsPatch{TTSEnabled: &on})
		fmt.Fprintln(out, dimStyle.Render("Speech "+fields[1]+"."))
	case "/stop":
		o.StopSpeech()
	default:
		return fmt.Errorf("unknown command %s, try /help", fields[0])
	}
	return nil
}

func (a *App) chatFast(ctx context.Context, c *di.Container, in *bufio.Scanner, out io.Writer, opts chatOptions) error {
	f, err := c.FastSession(ctx, a.session)
	if err != nil {
		return err
	}
	id := opts.character
	if id == "" {
		id = character.Gandalf
	}
	if err := f.SelectCharacter(id); err != nil {
		return errors.New(apperrors.GetErrorMessage(err))
	}
	printBanner(out, f.Snapshot().Character)

	for prompt(out); in.Scan(); prompt(out) {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "/quit", "/exit":
			return nil
		case "/clear":
			f.ClearMessages()
			continue
		case "/character":
			if len(fields) < 2 {
				printError(out, "usage: /character <id>")
			} else if err := f.SelectCharacter(fields[1]); err != nil {
				printError(out, apperrors.GetErrorMessage(err))
			} else {
				printBanner(out, f.Snapshot().Character)
			}
			continue
		}
		if strings.HasPrefix(line, "/") {
			printError(out, "only /character, /clear and /quit are available in fast mode")
			continue
		}

		reply, err := f.SendMessage(ctx, line)
		if err != nil {
			printError(out, apperrors.GetErrorMessage(err))
			continue
		}
		printMessage(out, f.Snapshot().Character, *reply)
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("(%d ms)", f.Snapshot().ResponseTimeMs)))
	}
	return in.Err()
}

func selectAndWait(ctx context.Context, o *conversation.Orchestrator, id string) error {
	loaded, err := o.SelectCharacter(ctx, id)
	if err != nil {
		return errors.New(apperrors.GetErrorMessage(err) + ": " + id)
	}
	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printBanner(out io.Writer, ch *models.Character) {
	if ch == nil {
		return
	}
	fmt.Fprintln(out, headerStyle.Render(ch.Avatar+" "+ch.Name))
	if ch.Description != "" {
		fmt.Fprintln(out, dimStyle.Render(ch.Description))
	}
}

func prompt(out io.Writer) {
	fmt.Fprint(out, userStyle.Render("> "))
}

func characterIDs(c *di.Container) []string {
	chars := c.Catalog.List()
	ids := make([]string, 0, len(chars))
	for _, ch := range chars {
		ids = append(ids, ch.ID)
	}
	return ids
}
