package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Player plays a synthesized clip to completion or until ctx is done
type Player interface {
	Play(ctx context.Context, clip *Clip) error
}

// CommandPlayer writes the clip to a temp file and runs an audio player on it
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer uses command when set (the file path is appended),
// otherwise the first of ffplay, afplay, paplay or aplay found on PATH.
func NewCommandPlayer(command string) *CommandPlayer {
	if fields := strings.Fields(command); len(fields) > 0 {
		return &CommandPlayer{name: fields[0], args: fields[1:]}
	}
	for _, candidate := range []struct {
		name string
		args []string
	}{
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"afplay", nil},
		{"paplay", nil},
		{"aplay", []string{"-q"}},
	} {
		if _, err := exec.LookPath(candidate.name); err == nil {
			return &CommandPlayer{name: candidate.name, args: candidate.args}
		}
	}
	return &CommandPlayer{}
}

// Play implements Player
func (p *CommandPlayer) Play(ctx context.Context, clip *Clip) error {
	if p.name == "" {
		return errors.New("no audio player available")
	}

	f, err := os.CreateTemp("", "roleplay-speech-*"+extensionFor(clip.ContentType))
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(clip.Data); err != nil {
		f.Close()
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}

	args := append(append([]string{}, p.args...), f.Name())
	if err := exec.CommandContext(ctx, p.name, args...).Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("audio player %s: %w", p.name, err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return ".mp3"
	case strings.Contains(contentType, "ogg"):
		return ".ogg"
	default:
		return ".wav"
	}
}
