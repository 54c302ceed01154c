package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Speaker renders text directly to the audio device
type Speaker interface {
	Speak(ctx context.Context, text string, v Voice) error
	Available() bool
}

// baseWPM is the words-per-minute that maps to rate 1.0
const baseWPM = 175

// CommandSpeaker drives a local text-to-speech binary. A template may use
// the placeholders {text}, {rate}, {wpm}, {pitch} and {volume}.
type CommandSpeaker struct {
	name string
	args []string
}

// NewCommandSpeaker uses template when set, otherwise the first of
// espeak-ng, espeak or say found on PATH. The result may be unavailable.
func NewCommandSpeaker(template string) *CommandSpeaker {
	if fields := strings.Fields(template); len(fields) > 0 {
		return &CommandSpeaker{name: fields[0], args: fields[1:]}
	}
	for _, candidate := range builtinSpeakers {
		if _, err := exec.LookPath(candidate.name); err == nil {
			return &CommandSpeaker{name: candidate.name, args: candidate.args}
		}
	}
	return &CommandSpeaker{}
}

// builtinSpeakers pass the text after "--" so a leading dash is not an option
var builtinSpeakers = []CommandSpeaker{
	{"espeak-ng", []string{"-s", "{wpm}", "-p", "{pitch}", "-a", "{volume}", "--", "{text}"}},
	{"espeak", []string{"-s", "{wpm}", "-p", "{pitch}", "-a", "{volume}", "--", "{text}"}},
	{"say", []string{"-r", "{wpm}", "--", "{text}"}},
}

// Available reports whether the command can be found
func (s *CommandSpeaker) Available() bool {
	if s.name == "" {
		return false
	}
	_, err := exec.LookPath(s.name)
	return err == nil
}

// Speak runs the command and waits for it. Cancelling ctx kills it.
func (s *CommandSpeaker) Speak(ctx context.Context, text string, v Voice) error {
	if s.name == "" {
		return errors.New("no speech command available")
	}
	cmd := exec.CommandContext(ctx, s.name, s.expand(text, v)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech command %s: %w", s.name, err)
	}
	return nil
}

func (s *CommandSpeaker) expand(text string, v Voice) []string {
	rate := v.Speed
	if rate <= 0 {
		rate = DefaultRate
	}
	pitch := v.Pitch
	if pitch <= 0 {
		pitch = 1.0
	}

	// espeak takes pitch 0-99 with 50 as neutral and amplitude 0-200
	replacer := strings.NewReplacer(
		"{text}", text,
		"{rate}", strconv.FormatFloat(rate, 'f', -1, 64),
		"{wpm}", strconv.Itoa(int(rate*baseWPM)),
		"{pitch}", strconv.Itoa(min(99, int(pitch*50))),
		"{volume}", strconv.Itoa(int(FallbackVolume*100)),
	)
	out := make([]string, len(s.args))
	for i, a := range s.args {
		out[i] = replacer.Replace(a)
	}
	return out
}
